package provider

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type testProvider struct {
	name    string
	baseURL string
}

func (p *testProvider) Name() string                       { return p.name }
func (p *testProvider) IsAvailable(_ context.Context) bool { return p.baseURL != "" }

func testFactory(name string) Factory[*testProvider] {
	return func(settings map[string]any) (*testProvider, error) {
		url, _ := settings["base_url"].(string)
		return &testProvider{name: name, baseURL: url}, nil
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry[*testProvider]()
	reg.Register("whisper", testFactory("whisper"))
	reg.Register("openai", testFactory("openai"))
	reg.Register("broken", func(map[string]any) (*testProvider, error) {
		return nil, errors.New("bad settings")
	})

	if got := strings.Join(reg.Names(), ","); got != "broken,openai,whisper" {
		t.Errorf("Names() = %s", got)
	}

	p, err := reg.Create("openai", map[string]any{"base_url": "https://api.openai.com/v1"})
	if err != nil {
		t.Fatal(err)
	}
	if p.Name() != "openai" || !p.IsAvailable(context.Background()) {
		t.Errorf("created %+v", p)
	}

	_, err = reg.Create("azure", nil)
	if !errors.Is(err, ErrUnknown) || !strings.Contains(err.Error(), `"azure", have [broken openai whisper]`) {
		t.Errorf("unknown name: %v", err)
	}

	_, err = reg.Create("broken", nil)
	if err == nil || err.Error() != "broken: bad settings" {
		t.Errorf("factory failure: %v", err)
	}
}

func TestRegistry_LaterRegistrationWins(t *testing.T) {
	reg := NewRegistry[*testProvider]()
	reg.Register("openai", testFactory("v1"))
	reg.Register("openai", testFactory("v2"))

	first, _ := reg.Create("openai", nil)
	second, _ := reg.Create("openai", nil)
	if first == second {
		t.Error("instances must not be shared")
	}
	if first.Name() != "v2" {
		t.Errorf("Name() = %q", first.Name())
	}
}
