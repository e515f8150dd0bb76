package news

import (
	"sort"
	"strings"
)

// clusterTitleRunes is the headline prefix length entering the cluster key.
const clusterTitleRunes = 20

// ClusterKey derives the event-cluster key for an article: the sorted
// security set (or a placeholder when empty) plus the normalized headline
// prefix. Articles covering the same event from different outlets land on
// the same key.
func ClusterKey(a Article) string {
	stocks := "no_stock"
	if len(a.Securities) > 0 {
		ids := append([]string(nil), a.Securities...)
		sort.Strings(ids)
		stocks = strings.Join(ids, ",")
	}

	title := a.Title
	if runes := []rune(title); len(runes) > clusterTitleRunes {
		title = string(runes[:clusterTitleRunes])
	}
	return stocks + "_" + Normalize(title)
}

// Cluster groups articles by ClusterKey. The index is rebuilt from scratch
// on every call; each article lands in exactly one cluster.
func Cluster(articles []Article) map[string][]Article {
	clusters := make(map[string][]Article)
	for _, a := range articles {
		key := ClusterKey(a)
		clusters[key] = append(clusters[key], a)
	}
	return clusters
}

// Representative picks the article that stands for a cluster in ranking:
// the highest source weight, ties broken by the most recent publish time.
// weightOf maps a source display name to its configured weight.
func Representative(articles []Article, weightOf func(string) float64) Article {
	best := articles[0]
	bestWeight := weightOf(best.Source)
	for _, a := range articles[1:] {
		w := weightOf(a.Source)
		if w > bestWeight || (w == bestWeight && a.Published.After(best.Published)) {
			best = a
			bestWeight = w
		}
	}
	return best
}
