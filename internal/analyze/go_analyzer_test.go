package analyze

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goSample = `package ledger

import (
	"fmt"

	"example.com/ledger/internal/tax"
)

type Account struct {
	Balance int
}

func (a *Account) Deposit(amount int) error {
	if amount < 0 {
		return fmt.Errorf("negative deposit")
	}
	a.Balance += amount
	return nil
}

func Sum(values []int) (int, error) {
	total := 0
	for _, v := range values {
		total += v
	}
	_ = tax.Rate
	return total, nil
}
`

func writeGoProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module example.com/ledger\n\ngo 1.24\n"), 0644))
	return dir
}

func TestGoAnalyzerSignatures(t *testing.T) {
	g := NewGoAnalyzer(writeGoProject(t))
	unit := g.Analyze("account.go", []byte(goSample))

	require.False(t, unit.Degraded)
	assert.Equal(t, "go", unit.Language)
	require.Len(t, unit.Signatures, 2)

	assert.Equal(t, "Deposit", unit.Signatures[0].Name)
	assert.Equal(t, "Account", unit.Signatures[0].Receiver)
	assert.Equal(t, []string{"int"}, unit.Signatures[0].Params)
	assert.Equal(t, []string{"error"}, unit.Signatures[0].Results)

	assert.Equal(t, "Sum", unit.Signatures[1].Name)
	assert.Empty(t, unit.Signatures[1].Receiver)
	assert.Equal(t, []string{"[]int"}, unit.Signatures[1].Params)
	assert.Equal(t, []string{"int", "error"}, unit.Signatures[1].Results)

	require.Len(t, unit.Classes, 1)
	assert.Equal(t, "Account", unit.Classes[0].Name)
	require.Len(t, unit.Classes[0].Methods, 1)
	assert.Equal(t, "Deposit", unit.Classes[0].Methods[0].Name)
}

func TestGoAnalyzerImportResolution(t *testing.T) {
	g := NewGoAnalyzer(writeGoProject(t))
	unit := g.Analyze("account.go", []byte(goSample))

	require.Len(t, unit.Imports, 2)
	assert.Equal(t, "fmt", unit.Imports[0].Name)
	assert.False(t, unit.Imports[0].Internal)

	assert.Equal(t, "example.com/ledger/internal/tax", unit.Imports[1].Name)
	assert.True(t, unit.Imports[1].Internal)
	assert.Equal(t, "internal/tax", unit.Imports[1].Path)

	assert.Equal(t, []string{"internal/tax"}, unit.InternalDeps())
}

func TestGoAnalyzerDegradedOnSyntaxError(t *testing.T) {
	g := NewGoAnalyzer(writeGoProject(t))
	unit := g.Analyze("broken.go", []byte("package x\n\nfunc oops( {"))

	assert.True(t, unit.Degraded)
	assert.Empty(t, unit.Signatures)
	assert.NotEmpty(t, unit.ContentHash)
}

func TestGoAnalyzerIdempotent(t *testing.T) {
	g := NewGoAnalyzer(writeGoProject(t))
	a := g.Analyze("account.go", []byte(goSample))
	b := g.Analyze("account.go", []byte(goSample))

	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("repeated analysis diverged (-first +second):\n%s", diff)
	}
}

func TestAnalyzerDispatchUnknownExtension(t *testing.T) {
	a := NewAnalyzer(NewGoAnalyzer(writeGoProject(t)))

	assert.True(t, a.Supports("main.go"))
	assert.False(t, a.Supports("readme.md"))

	unit := a.Analyze("data.json", []byte("{}"))
	assert.True(t, unit.Degraded)
	assert.Equal(t, "unknown", unit.Language)
}

func TestSummaryRendering(t *testing.T) {
	g := NewGoAnalyzer(writeGoProject(t))
	unit := g.Analyze("account.go", []byte(goSample))

	summary := unit.Summary()
	assert.Contains(t, summary, "Sum([]int) -> int, error")
	assert.Contains(t, summary, "Classes: Account [Deposit]")
	assert.Contains(t, summary, "Internal imports: internal/tax")
}
