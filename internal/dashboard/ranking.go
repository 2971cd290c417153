package dashboard

import (
	"sort"

	"github.com/cashflow-ai/cashflow/internal/clients"
)

// RankClients orders clients by total invoiced, highest first, and keeps the first
// limit entries. Ties keep name order so the ranking is deterministic.
func RankClients(list []clients.Client, limit int) []clients.Client {
	if limit <= 0 || len(list) == 0 {
		return []clients.Client{}
	}
	ranked := make([]clients.Client, len(list))
	copy(ranked, list)
	sort.SliceStable(ranked, func(i, j int) bool {
		if c := ranked[i].TotalInvoiced.Cmp(ranked[j].TotalInvoiced); c != 0 {
			return c > 0
		}
		return ranked[i].Name < ranked[j].Name
	})
	return ranked[:min(limit, len(ranked))]
}
