package lexer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fhir4ds/sqlcompiler/pkg/fhirpath/lexer"
)

func kinds(t *testing.T, src string) []lexer.Kind {
	t.Helper()
	toks, err := lexer.Tokenize(src)
	require.NoError(t, err)
	out := make([]lexer.Kind, len(toks))
	for i, tok := range toks {
		out[i] = tok.Kind
	}
	return out
}

func TestTokenizeIdentifierPath(t *testing.T) {
	got := kinds(t, "Patient.name")
	require.Equal(t, []lexer.Kind{lexer.Identifier, lexer.Dot, lexer.Identifier, lexer.EOF}, got)
}

func TestTokenizeDelimitedIdentifier(t *testing.T) {
	toks, err := lexer.Tokenize("`div`")
	require.NoError(t, err)
	require.Equal(t, lexer.DelimitedIdentifier, toks[0].Kind)
	require.Equal(t, "div", toks[0].Text)
}

func TestTokenizeStringEscapesAndDoubledQuote(t *testing.T) {
	toks, err := lexer.Tokenize(`'it''s a \'test\''`)
	require.NoError(t, err)
	require.Equal(t, lexer.String, toks[0].Kind)
	require.Equal(t, "it's a 'test'", toks[0].Text)
}

func TestTokenizeUnterminatedStringIsError(t *testing.T) {
	_, err := lexer.Tokenize("'unterminated")
	require.Error(t, err)
}

func TestTokenizeUnterminatedBlockCommentIsError(t *testing.T) {
	_, err := lexer.Tokenize("/* never closed")
	require.Error(t, err)
}

func TestTokenizeSkipsLineAndBlockComments(t *testing.T) {
	toks, err := lexer.Tokenize("Patient // trailing comment\n.active /* inline */ .exists()")
	require.NoError(t, err)
	require.Equal(t, lexer.Identifier, toks[0].Kind)
	require.Equal(t, "Patient", toks[0].Text)
}

func TestTokenizeIntegerAndDecimal(t *testing.T) {
	toks, err := lexer.Tokenize("42 3.14")
	require.NoError(t, err)
	require.Equal(t, lexer.Integer, toks[0].Kind)
	require.Equal(t, lexer.Decimal, toks[1].Kind)
}

func TestTokenizeDecimalRequiresDigitAfterDot(t *testing.T) {
	toks, err := lexer.Tokenize("1.exists()")
	require.NoError(t, err)
	require.Equal(t, lexer.Integer, toks[0].Kind)
	require.Equal(t, lexer.Dot, toks[1].Kind)
}

func TestTokenizeKeywordsAreCaseSensitive(t *testing.T) {
	toks, err := lexer.Tokenize("true and false")
	require.NoError(t, err)
	require.Equal(t, lexer.Boolean, toks[0].Kind)
	require.Equal(t, lexer.And, toks[1].Kind)
	require.Equal(t, lexer.Boolean, toks[2].Kind)
}

func TestTokenizeVariables(t *testing.T) {
	toks, err := lexer.Tokenize("$this $index $total $foo")
	require.NoError(t, err)
	require.Equal(t, []lexer.Kind{lexer.ThisVar, lexer.IndexVar, lexer.TotalVar, lexer.NamedVar, lexer.EOF},
		[]lexer.Kind{toks[0].Kind, toks[1].Kind, toks[2].Kind, toks[3].Kind, toks[4].Kind})
}

func TestTokenizeNamedVariableRequiresName(t *testing.T) {
	_, err := lexer.Tokenize("$ ")
	require.Error(t, err)
}

func TestTokenizeDateAndDateTimeLiterals(t *testing.T) {
	toks, err := lexer.Tokenize("@2014-03-12 @2014-03-12T10:00:00Z")
	require.NoError(t, err)
	require.Equal(t, lexer.DateLiteral, toks[0].Kind)
	require.Equal(t, lexer.DateTimeLiteral, toks[1].Kind)
}

func TestTokenizePunctuationAndOperators(t *testing.T) {
	toks, err := lexer.Tokenize("<= >= != !~ & | ~")
	require.NoError(t, err)
	want := []lexer.Kind{lexer.LessEqual, lexer.GreaterEqual, lexer.NotEqual, lexer.NotTilde, lexer.Ampersand, lexer.Pipe, lexer.Equivalent, lexer.EOF}
	got := make([]lexer.Kind, len(toks))
	for i, tok := range toks {
		got[i] = tok.Kind
	}
	require.Equal(t, want, got)
}
