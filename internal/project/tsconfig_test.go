package project

import (
	"encoding/json"
	"path/filepath"
	"reflect"
	"testing"
)

func TestStripJSONC(t *testing.T) {
	input := `{
  // line comment
  "compilerOptions": {
    /* block
       comment */
    "baseUrl": ".", // trailing
    "paths": {
      "@app/*": ["src/app/*",],
    },
    "url": "http://example.com/*not-a-comment*/",
  },
}`

	var out map[string]any
	if err := json.Unmarshal(StripJSONC([]byte(input)), &out); err != nil {
		t.Fatalf("stripped document does not parse: %v\n%s", err, StripJSONC([]byte(input)))
	}

	opts := out["compilerOptions"].(map[string]any)
	if opts["url"] != "http://example.com/*not-a-comment*/" {
		t.Errorf("string content altered: %v", opts["url"])
	}
	if opts["baseUrl"] != "." {
		t.Errorf("baseUrl = %v", opts["baseUrl"])
	}
}

func TestStripJSONC_EscapedQuote(t *testing.T) {
	input := `{"a": "say \"hi\" // still string", "b": 1,}`

	var out map[string]any
	if err := json.Unmarshal(StripJSONC([]byte(input)), &out); err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if out["a"] != `say "hi" // still string` {
		t.Errorf("a = %q", out["a"])
	}
}

func TestLoadResolution(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"tsconfig.json": `{
			// aliases
			"compilerOptions": {
				"baseUrl": "./src",
				"paths": {
					"@/*": ["*"],
					"@shared/*": ["../shared/*", "vendor/shared/*"],
					"config": ["config/index.ts"],
				}
			}
		}`,
	})

	res, err := LoadResolution(dir)
	if err != nil {
		t.Fatalf("LoadResolution() error = %v", err)
	}

	src := filepath.ToSlash(filepath.Join(dir, "src"))
	if res.BaseURL != src {
		t.Errorf("BaseURL = %q, want %q", res.BaseURL, src)
	}
	if len(res.Aliases) != 3 {
		t.Fatalf("Aliases = %+v, want 3", res.Aliases)
	}
	// most specific prefix first
	if res.Aliases[0].Pattern != "@shared/*" {
		t.Errorf("Aliases[0] = %q, want @shared/*", res.Aliases[0].Pattern)
	}
	want := []string{filepath.ToSlash(filepath.Join(dir, "shared", "*")), src + "/vendor/shared/*"}
	if !reflect.DeepEqual(res.Aliases[0].Targets, want) {
		t.Errorf("Targets = %v, want %v", res.Aliases[0].Targets, want)
	}
}

func TestLoadResolution_Extends(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"tsconfig.base.json": `{"compilerOptions": {"baseUrl": ".", "paths": {"~/*": ["src/*"]}}}`,
		"tsconfig.json":      `{"extends": "./tsconfig.base", "compilerOptions": {"strict": true}}`,
	})

	res, err := LoadResolution(dir)
	if err != nil {
		t.Fatalf("LoadResolution() error = %v", err)
	}
	if len(res.Aliases) != 1 || res.Aliases[0].Pattern != "~/*" {
		t.Errorf("inherited aliases = %+v", res.Aliases)
	}
}

func TestLoadResolution_JSConfigAndMissing(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"jsconfig.json": `{"compilerOptions": {"paths": {"lib/*": ["./lib/*"]}}}`,
	})
	res, err := LoadResolution(dir)
	if err != nil {
		t.Fatalf("LoadResolution() error = %v", err)
	}
	if filepath.Base(res.File) != "jsconfig.json" {
		t.Errorf("File = %q", res.File)
	}
	// paths without baseUrl resolve against the config directory
	if got, want := res.Aliases[0].Targets[0], filepath.ToSlash(filepath.Join(dir, "lib", "*")); got != want {
		t.Errorf("target = %q, want %q", got, want)
	}

	empty, err := LoadResolution(t.TempDir())
	if err != nil || empty.File != "" || len(empty.Aliases) != 0 {
		t.Errorf("LoadResolution(empty) = %+v, %v", empty, err)
	}
}

func TestAlias_MatchExpand(t *testing.T) {
	a := Alias{Pattern: "@app/*", Targets: []string{"/r/src/app/*", "/r/gen/*"}}

	capture, ok := a.Match("@app/models/user")
	if !ok || capture != "models/user" {
		t.Fatalf("Match() = %q, %v", capture, ok)
	}
	if got := a.Expand(capture); !reflect.DeepEqual(got, []string{"/r/src/app/models/user", "/r/gen/models/user"}) {
		t.Errorf("Expand() = %v", got)
	}

	if _, ok := a.Match("@other/x"); ok {
		t.Error("unexpected match")
	}

	exact := Alias{Pattern: "config", Targets: []string{"/r/config.ts"}}
	if _, ok := exact.Match("config"); !ok {
		t.Error("exact alias should match")
	}
	if _, ok := exact.Match("config/x"); ok {
		t.Error("exact alias should not match longer specifier")
	}
}
