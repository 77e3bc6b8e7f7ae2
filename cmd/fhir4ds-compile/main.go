// Command fhir4ds-compile lowers a FHIRPath expression to SQL.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fhir4ds/sqlcompiler/pkg/dialect"
	"github.com/fhir4ds/sqlcompiler/pkg/dialect/jsonbdialect"
	"github.com/fhir4ds/sqlcompiler/pkg/dialect/jsondialect"
	"github.com/fhir4ds/sqlcompiler/pkg/fhirpath"
	"github.com/fhir4ds/sqlcompiler/pkg/registry"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fhir4ds-compile",
		Short: "Compile FHIRPath expressions to SQL",
		Long: `fhir4ds-compile lowers a FHIRPath expression into a dependency-ordered
chain of SQL common table expressions against a JSON or JSONB document
engine. It does not evaluate the expression; it only produces SQL text.`,
	}

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompileCmd())
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("fhir4ds-compile version %s\n", version)
		},
	}
}

func resolveDialect(name string) (dialect.Dialect, error) {
	switch name {
	case "json":
		return jsondialect.New(), nil
	case "jsonb":
		return jsonbdialect.New(), nil
	default:
		return nil, fmt.Errorf("unknown dialect %q (want \"json\" or \"jsonb\")", name)
	}
}

func newCompileCmd() *cobra.Command {
	var dialectName string
	var resourceType string

	cmd := &cobra.Command{
		Use:   "compile [expression]",
		Short: "Compile a FHIRPath expression to SQL",
		Long: `Compile a FHIRPath expression into SQL CTEs.

Examples:
  fhir4ds-compile compile "Patient.name.given" --resource-type Patient
  fhir4ds-compile compile "Observation.value.ofType(Quantity).value" \
      --resource-type Observation --dialect jsonb`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			d, err := resolveDialect(dialectName)
			if err != nil {
				return err
			}
			if resourceType == "" {
				return fmt.Errorf("--resource-type is required")
			}

			reg, err := registry.NewDefaultRegistry()
			if err != nil {
				return fmt.Errorf("failed to load type registry: %w", err)
			}

			result, err := fhirpath.Compile(args[0], fhirpath.CompileContext{ResourceType: resourceType}, d, reg)
			if err != nil {
				return fmt.Errorf("compile error: %w", err)
			}

			fmt.Println(result.SQL)
			return nil
		},
	}

	cmd.Flags().StringVar(&dialectName, "dialect", "json", "SQL dialect to target (json, jsonb)")
	cmd.Flags().StringVar(&resourceType, "resource-type", "", "FHIR resource type the expression navigates from")

	return cmd
}
