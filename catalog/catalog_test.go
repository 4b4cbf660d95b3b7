package catalog_test

import (
	"context"
	"testing"
	"time"

	"github.com/hookline/hookline/catalog"
	"github.com/hookline/hookline/store/memory"
)

func TestRegisterAndGetEventType(t *testing.T) {
	ctx := context.Background()
	c := catalog.New(memory.New(), catalog.Config{CacheTTL: time.Minute}, nil)

	if _, err := c.RegisterEventType(ctx, catalog.EventTypeDefinition{
		Name:        "job.created",
		Description: "a job was created",
	}); err != nil {
		t.Fatal(err)
	}

	et, err := c.GetEventType(ctx, "job.created")
	if err != nil {
		t.Fatal(err)
	}
	if et.Definition.Name != "job.created" {
		t.Errorf("got name %q", et.Definition.Name)
	}

	if _, err := c.GetEventType(ctx, "job.unknown"); err == nil {
		t.Error("expected error for unregistered type")
	}
}

func TestRegisterAndGetSourceModule(t *testing.T) {
	ctx := context.Background()
	c := catalog.New(memory.New(), catalog.Config{}, nil)

	if _, err := c.RegisterSourceModule(ctx, "JOBS", "job scheduler"); err != nil {
		t.Fatal(err)
	}

	sm, err := c.GetSourceModule(ctx, "JOBS")
	if err != nil {
		t.Fatal(err)
	}
	if sm.Name != "JOBS" {
		t.Errorf("got name %q", sm.Name)
	}

	if _, err := c.GetSourceModule(ctx, "NOPE"); err == nil {
		t.Error("expected error for unregistered module")
	}
}

func TestDeprecateEventType(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	c := catalog.New(store, catalog.Config{}, nil)

	if _, err := c.RegisterEventType(ctx, catalog.EventTypeDefinition{Name: "job.created"}); err != nil {
		t.Fatal(err)
	}
	if err := c.DeprecateEventType(ctx, "job.created"); err != nil {
		t.Fatal(err)
	}

	et, err := c.GetEventType(ctx, "job.created")
	if err != nil {
		t.Fatal(err)
	}
	if !et.IsDeprecated {
		t.Error("expected type to be deprecated")
	}
}
