package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tidwall/gjson"
)

const peopleYAML = `fields:
  - name: name
    type: string
    required: true
  - name: password_hash
    type: string
    hidden: true
  - name: created_at
    type: string
    read_only: true
relationships:
  - name: friends
    type: people
    to_many: true
labels:
  me: "1"
  featured: ["1", "2"]
`

const seedJSON = `{"data":[
  {"type":"people","id":"1","attributes":{"name":"Ada","password_hash":"x"},
   "relationships":{"friends":{"data":[{"type":"people","id":"2"}]}}},
  {"type":"people","id":"2","attributes":{"name":"Grace"}}
]}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func typesDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "people.yaml", peopleYAML)
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// body returns the JSON document printed after the header block.
func body(t *testing.T, out string) string {
	t.Helper()
	_, b, ok := strings.Cut(out, "\n\n")
	if !ok {
		t.Fatalf("no body in output:\n%s", out)
	}
	if !gjson.Valid(b) {
		t.Fatalf("invalid json body:\n%s", b)
	}
	return b
}

func TestTypesList(t *testing.T) {
	dir := typesDir(t)
	writeFile(t, dir, "broken.yaml", "fields: [\n")
	out, err := execute(t, "types", "list", "--dir", dir)
	if err != nil {
		t.Fatalf("types list: %v", err)
	}
	for _, want := range []string{"types=1", "people  fields=3 relationships=1 labels=2", "skipped: broken.yaml"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestTypesDirFromConfig(t *testing.T) {
	dir := typesDir(t)
	cfg := writeFile(t, t.TempDir(), "ora.yaml", "registry:\n  dir: "+dir+"\n")
	t.Setenv("ORA_TYPES_DIR", "")
	out, err := execute(t, "types", "list", "-c", cfg)
	if err != nil {
		t.Fatalf("types list: %v", err)
	}
	if !strings.Contains(out, "people") {
		t.Fatalf("out=%s", out)
	}
}

func TestTypesShow(t *testing.T) {
	dir := typesDir(t)
	out, err := execute(t, "types", "show", "people", "--dir", dir)
	if err != nil {
		t.Fatalf("types show: %v", err)
	}
	for _, want := range []string{
		"name string required",
		"password_hash string hidden",
		"created_at string read_only",
		"friends -> people (to-many)",
		"featured = 1,2",
		"me = 1",
		"self /{type}/{id}",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}

	if _, err := execute(t, "types", "show", "pets", "--dir", dir); err == nil {
		t.Fatalf("expected error for unknown type")
	}
}

func TestValidate(t *testing.T) {
	dir := typesDir(t)
	out, err := execute(t, "validate", dir)
	if err != nil || !strings.Contains(out, "types loaded=1") {
		t.Fatalf("out=%q err=%v", out, err)
	}
	out, err = execute(t, "validate", filepath.Join(dir, "people.yaml"))
	if err != nil || !strings.Contains(out, "type people") {
		t.Fatalf("out=%q err=%v", out, err)
	}

	writeFile(t, dir, "reserved.yaml", "fields:\n  - name: id\n")
	if _, err := execute(t, "validate", dir); err == nil {
		t.Fatalf("expected error for reserved field")
	}
	if _, err := execute(t, "validate", filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestRequest_ReadWithInclude(t *testing.T) {
	dir := typesDir(t)
	seed := writeFile(t, t.TempDir(), "seed.json", seedJSON)
	out, err := execute(t, "request", "--dir", dir, "--seed", seed, "--color=false", "/people/1?include=friends")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if !strings.HasPrefix(out, "HTTP 200\n") {
		t.Fatalf("out=%s", out)
	}
	doc := body(t, out)
	if got := gjson.Get(doc, "data.id").String(); got != "1" {
		t.Fatalf("data.id=%q", got)
	}
	if gjson.Get(doc, "data.attributes.password_hash").Exists() {
		t.Fatalf("hidden attribute rendered: %s", doc)
	}
	if got := gjson.Get(doc, "included.0.attributes.name").String(); got != "Grace" {
		t.Fatalf("included=%s", gjson.Get(doc, "included").Raw)
	}
}

func TestRequest_Label(t *testing.T) {
	dir := typesDir(t)
	seed := writeFile(t, t.TempDir(), "seed.json", seedJSON)
	out, err := execute(t, "request", "--dir", dir, "--seed", seed, "--label", "--color=false", "/people/featured")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if got := gjson.Get(body(t, out), "data.#").Int(); got != 2 {
		t.Fatalf("data count=%d out=%s", got, out)
	}
}

func TestRequest_CreateErrors(t *testing.T) {
	dir := typesDir(t)
	tmp := t.TempDir()

	missing := writeFile(t, tmp, "missing.json", `{"data":{"type":"people","attributes":{}}}`)
	out, err := execute(t, "request", "--dir", dir, "-X", "POST", "-d", missing, "--color=false", "/people")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if !strings.HasPrefix(out, "HTTP 400\n") || gjson.Get(body(t, out), "errors.0.code").String() != "missing_attribute" {
		t.Fatalf("out=%s", out)
	}

	readOnly := writeFile(t, tmp, "ro.json", `{"data":{"type":"people","attributes":{"name":"Ada","created_at":"now"}}}`)
	out, err = execute(t, "request", "--dir", dir, "-X", "POST", "-d", readOnly, "--color=false", "/people")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if !strings.HasPrefix(out, "HTTP 403\n") {
		t.Fatalf("out=%s", out)
	}

	created := writeFile(t, tmp, "ok.json", `{"data":{"type":"people","attributes":{"name":"Ada"}}}`)
	out, err = execute(t, "request", "--dir", dir, "-X", "POST", "-d", created, "--color=false", "/people")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if !strings.HasPrefix(out, "HTTP 201\n") || !strings.Contains(out, "Location: /people/") {
		t.Fatalf("out=%s", out)
	}
}

func TestRequest_BadInput(t *testing.T) {
	dir := typesDir(t)
	if _, err := execute(t, "request", "--dir", dir, "/people/1/friends"); err == nil {
		t.Fatalf("expected error for unsupported path")
	}
	badSeed := writeFile(t, t.TempDir(), "seed.json", `{"meta":{}}`)
	if _, err := execute(t, "request", "--dir", dir, "--seed", badSeed, "/people"); err == nil {
		t.Fatalf("expected error for seed without data")
	}
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil || !strings.HasPrefix(out, "open-resource-api ") {
		t.Fatalf("out=%q err=%v", out, err)
	}
}
