package rules

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/storage"
)

func TestDecodePayloadSniffsFormat(t *testing.T) {
	cases := []struct {
		name string
		data string
		want int
	}{
		{name: "json", data: ` {"ng":[{"pattern":"完治","suggest":"改善"}]}`, want: 1},
		{name: "yaml", data: "ng:\n  - pattern: 完治\n    suggest: 改善\n  - pattern: 即効\n", want: 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, skipped, err := decodePayload([]byte(tc.data), formatAuto)
			if err != nil {
				t.Fatalf("decodePayload: %v", err)
			}
			if len(got) != tc.want || skipped != 0 {
				t.Fatalf("want=%d rules got=%d (skipped=%d)", tc.want, len(got), skipped)
			}
		})
	}
}

func TestDecodePayloadErrors(t *testing.T) {
	if _, _, err := decodePayload([]byte(`{"ng":[]}`), formatJSON); !errors.Is(err, ErrNoRules) {
		t.Fatalf("empty ng: want ErrNoRules got=%v", err)
	}
	if _, _, err := decodePayload([]byte(`{}`), formatJSON); !errors.Is(err, ErrNoRules) {
		t.Fatalf("missing ng: want ErrNoRules got=%v", err)
	}
	_, _, err := decodePayload([]byte(`{"ng":`), formatJSON)
	if err == nil || errors.Is(err, ErrNoRules) {
		t.Fatalf("truncated json: want decode error got=%v", err)
	}
	got, skipped, err := decodePayload([]byte(`{"ng":["完治",{"pattern":"即効"}]}`), formatJSON)
	if err != nil || len(got) != 1 || skipped != 1 {
		t.Fatalf("mixed entries: rules=%v skipped=%d err=%v", got, skipped, err)
	}
}

func TestFileSourceMissing(t *testing.T) {
	src := NewFileSource(t.TempDir()+"/nope.json", nil)
	if _, err := src.TryLoad(context.Background()); !errors.Is(err, ErrSourceNotFound) {
		t.Fatalf("want ErrSourceNotFound got=%v", err)
	}
	if _, err := NewFileSource(t.TempDir(), nil).TryLoad(context.Background()); err == nil {
		t.Fatalf("directory should not load")
	}
}

func TestObjectSourceClientFailureIsNotNotFound(t *testing.T) {
	src, err := NewObjectSource("gs://rules-bucket/ng.yaml", nil)
	if err != nil {
		t.Fatalf("NewObjectSource: %v", err)
	}
	boom := errors.New("no credentials")
	src.newClient = func(context.Context) (*storage.Client, error) { return nil, boom }
	if _, err := src.TryLoad(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("want client error got=%v", err)
	}
	if src.Name() != "gs://rules-bucket/ng.yaml" || src.Kind() != "gcs" {
		t.Fatalf("unexpected identity: %s %s", src.Name(), src.Kind())
	}
	if err := src.Close(); err != nil {
		t.Fatalf("Close without client: %v", err)
	}
}

func TestStaticSource(t *testing.T) {
	if _, err := (StaticSource{Label: "empty"}).TryLoad(context.Background()); !errors.Is(err, ErrNoRules) {
		t.Fatalf("empty static: want ErrNoRules got=%v", err)
	}
}
