package core

// FilterNewEmails returns the subset of items whose (id, "email") key is
// absent from the seen-set. Pure function over already-loaded data.
func FilterNewEmails(items []EmailItem, seen SeenSet) []EmailItem {
	var fresh []EmailItem
	for _, item := range items {
		if !seen.Contains(SeenKey{ID: item.ID, Source: SourceEmail}) {
			fresh = append(fresh, item)
		}
	}
	return fresh
}

// FilterNewFeedItems returns the subset of items whose (id, "rss") key is
// absent from the seen-set.
func FilterNewFeedItems(items []FeedItem, seen SeenSet) []FeedItem {
	var fresh []FeedItem
	for _, item := range items {
		if !seen.Contains(SeenKey{ID: item.ID, Source: SourceRSS}) {
			fresh = append(fresh, item)
		}
	}
	return fresh
}

// SeenKeys builds the ledger keys for every item included in a digest.
func SeenKeys(emails []EmailItem, feedItems []FeedItem) []SeenKey {
	keys := make([]SeenKey, 0, len(emails)+len(feedItems))
	for _, e := range emails {
		keys = append(keys, SeenKey{ID: e.ID, Source: SourceEmail})
	}
	for _, f := range feedItems {
		keys = append(keys, SeenKey{ID: f.ID, Source: SourceRSS})
	}
	return keys
}
