package service

import "medrag/internal/model"

// filterByRole keeps the matches visible to the requester: role must equal the
// chunk's role exactly (no hierarchy, admin is not special-cased) and the
// chunk must carry text, since an empty passage is no evidence. Relative order
// is preserved.
func filterByRole(matches []model.ChunkMatch, role string) []model.ChunkMatch {
	filtered := make([]model.ChunkMatch, 0, len(matches))
	for _, match := range matches {
		if match.Role != role {
			continue
		}
		if match.Text == "" {
			continue
		}
		filtered = append(filtered, match)
	}
	return filtered
}
