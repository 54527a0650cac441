package diag

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIgnoreRulesMatch(t *testing.T) {
	rules, err := CompileIgnoreRules([]IgnoreRule{
		{Path: "legacy/**", Codes: []string{"ERR_EVAL_BANNED"}},
		{Path: "vendor/*.js"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, rules.Len())

	assert.True(t, rules.Matches("legacy/a/b.js", "ERR_EVAL_BANNED"))
	assert.False(t, rules.Matches("legacy/a/b.js", "WARN_UNRESOLVED_CALL"))
	assert.True(t, rules.Matches("vendor/x.js", "ANY"))
	assert.False(t, rules.Matches("vendor/nested/x.js", "ANY"))
	assert.False(t, rules.Matches("", "ERR_EVAL_BANNED"))

	var none *IgnoreRules
	assert.False(t, none.Matches("legacy/a.js", "ERR_EVAL_BANNED"))
}

func TestCompileIgnoreRulesRejectsEmptyPath(t *testing.T) {
	_, err := CompileIgnoreRules([]IgnoreRule{{Path: "  "}})
	assert.Error(t, err)
}

func TestCollectorSuppression(t *testing.T) {
	rules, err := CompileIgnoreRules([]IgnoreRule{{Path: "gen/**"}})
	require.NoError(t, err)

	c := NewCollector("EvalBanValidator", rules)
	c.Addf(SevFatal, "ERR_EVAL_BANNED", "src/a.js", "eval in %s", "a")
	c.Addf(SevFatal, "ERR_EVAL_BANNED", "gen/b.js", "eval in %s", "b")
	c.Addf(SevFatal, "ERR_EVAL_BANNED", "gen/c.js", "eval in %s", "c")

	ds := c.Diagnostics()
	require.Len(t, ds, 3)
	assert.Equal(t, "EvalBanValidator", ds[0].Plugin)
	assert.Equal(t, 2, c.SuppressedCount())
	assert.Len(t, Blocking(ds), 1)
	assert.Equal(t, map[Severity]int{SevFatal: 1}, CountBySeverity(ds))
}

func TestStrictModeErrorMessage(t *testing.T) {
	var err error = &StrictModeError{
		Phase: "validation",
		Diagnostics: []Diagnostic{
			{Code: "A", Severity: SevFatal, Plugin: "P1"},
			{Code: "B", Severity: SevFatal, Plugin: "P2"},
			{Code: "C", Severity: SevFatal, Plugin: "P1"},
		},
		SuppressedCount: 3,
	}
	var sme *StrictModeError
	require.True(t, errors.As(err, &sme))
	assert.Equal(t, "strict mode: 3 fatal diagnostic(s) after validation phase from [P1, P2] (3 suppressed by ignore rules)", err.Error())
}

func TestSortAndParseSeverity(t *testing.T) {
	ds := []Diagnostic{
		{Code: "b", Severity: SevWarning, Plugin: "x"},
		{Code: "a", Severity: SevFatal, Plugin: "y"},
		{Code: "c", Severity: SevInfo, Plugin: "a"},
	}
	Sort(ds)
	assert.Equal(t, []string{"a", "b", "c"}, []string{ds[0].Code, ds[1].Code, ds[2].Code})

	sev, ok := ParseSeverity("WARN")
	assert.True(t, ok)
	assert.Equal(t, SevWarning, sev)
	_, ok = ParseSeverity("loud")
	assert.False(t, ok)
}
