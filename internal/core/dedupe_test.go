package core

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestFilterNewEmails(t *testing.T) {
	seen := SeenSet{
		{ID: "a", Source: SourceEmail}: {},
		{ID: "b", Source: SourceRSS}:   {},
	}
	items := []EmailItem{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	fresh := FilterNewEmails(items, seen)
	if len(fresh) != 2 {
		t.Fatalf("expected 2 fresh emails, got %d", len(fresh))
	}
	// "b" is only seen as an rss item; the email with the same id is new.
	if fresh[0].ID != "b" || fresh[1].ID != "c" {
		t.Errorf("unexpected fresh ids: %q, %q", fresh[0].ID, fresh[1].ID)
	}
}

func TestFilterNewFeedItems(t *testing.T) {
	seen := SeenSet{{ID: "x", Source: SourceRSS}: {}}
	items := []FeedItem{{ID: "x"}, {ID: "y"}}

	fresh := FilterNewFeedItems(items, seen)
	if len(fresh) != 1 || fresh[0].ID != "y" {
		t.Fatalf("expected only %q to survive, got %v", "y", fresh)
	}
}

func TestSeenKeysCoverBothKinds(t *testing.T) {
	keys := SeenKeys(
		[]EmailItem{{ID: "e1"}, {ID: "e2"}},
		[]FeedItem{{ID: "f1"}},
	)
	want := []SeenKey{
		{ID: "e1", Source: SourceEmail},
		{ID: "e2", Source: SourceEmail},
		{ID: "f1", Source: SourceRSS},
	}
	if len(keys) != len(want) {
		t.Fatalf("expected %d keys, got %d", len(want), len(keys))
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("key %d = %v, want %v", i, keys[i], want[i])
		}
	}
}

// Marking a batch seen and re-filtering must always yield zero items,
// for any combination of ids already in the ledger.
func TestDedupePropertyIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	genIDs := gen.SliceOf(gen.Identifier())

	properties.Property("filter after mark-seen is empty", prop.ForAll(
		func(ids []string, preSeen []string) bool {
			seen := SeenSet{}
			for _, id := range preSeen {
				seen[SeenKey{ID: id, Source: SourceEmail}] = struct{}{}
			}
			items := make([]EmailItem, len(ids))
			for i, id := range ids {
				items[i] = EmailItem{ID: id}
			}

			fresh := FilterNewEmails(items, seen)
			for _, key := range SeenKeys(fresh, nil) {
				seen[key] = struct{}{}
			}
			return len(FilterNewEmails(items, seen)) == 0
		},
		genIDs, genIDs,
	))

	properties.Property("filtering never invents items", prop.ForAll(
		func(ids []string) bool {
			items := make([]EmailItem, len(ids))
			for i, id := range ids {
				items[i] = EmailItem{ID: id}
			}
			return len(FilterNewEmails(items, SeenSet{})) == len(items)
		},
		genIDs,
	))

	properties.TestingRun(t)
}
