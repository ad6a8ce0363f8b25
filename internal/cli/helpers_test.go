package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const testFixture = `
candidates:
  - { internal_id: a, external_id: ext-a, score: 0.9 }
  - { internal_id: b, external_id: ext-b, score: 0.7 }
  - { internal_id: c, external_id: ext-c, score: 0.5 }
  - { internal_id: d, external_id: ext-d, score: 0.3 }
  - { internal_id: e, external_id: ext-e, score: 0.2 }
catalog:
  - { id: a, external_id: ext-a, name: Neroli Bloom, brand: Atelier, price_per_unit: 1.0 }
  - { id: b, external_id: ext-b, name: Cedar Smoke, brand: Atelier, price_per_unit: 1.5 }
  - { id: c, external_id: ext-c, name: Vetiver Rain, brand: Maison, price_per_unit: 3.0 }
  - { id: d, external_id: ext-d, name: Amber Night, brand: Maison, price_per_unit: 4.0 }
  - { id: e, external_id: ext-e, name: Fig Leaf, brand: Maison, price_per_unit: 2.0 }
`

// testEnv is a scratch directory with a SQLite store and, optionally, a
// fixture remote.
type testEnv struct {
	t      *testing.T
	dir    string
	config string
}

func newTestEnv(t *testing.T, withRemote bool) *testEnv {
	t.Helper()
	dir := t.TempDir()

	cfg := "store:\n  backend: sqlite\n  path: " + filepath.Join(dir, "scentbox.db") + "\n"
	if withRemote {
		fixture := filepath.Join(dir, "fixture.yaml")
		require.NoError(t, os.WriteFile(fixture, []byte(testFixture), 0o644))
		cfg += "remote:\n  fixture: " + fixture + "\n"
	}
	path := filepath.Join(dir, "scentbox.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))

	return &testEnv{t: t, dir: dir, config: path}
}

// run executes the CLI with the env's config and returns stdout.
func (e *testEnv) run(args ...string) (string, error) {
	e.t.Helper()
	cmd := NewRootCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	full := append([]string{"--config", e.config, "--env-file", filepath.Join(e.dir, "missing.env")}, args...)
	cmd.SetArgs(full)
	err := cmd.Execute()
	return buf.String(), err
}

// runJSON executes the CLI in JSON mode and decodes the envelope.
func (e *testEnv) runJSON(args ...string) (envelope, error) {
	e.t.Helper()
	out, err := e.run(append([]string{"--format", "json"}, args...)...)
	var env envelope
	require.NoError(e.t, json.Unmarshal([]byte(out), &env), "output: %s", out)
	return env, err
}

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *CLIError       `json:"error"`
}

func (env envelope) into(t *testing.T, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, v))
}
