package indexer

import "github.com/hyperjump/lens/pkg/utils"

// Preprocess normalizes text for indexing (trim, collapse whitespace).
func Preprocess(text string) string {
	return utils.CollapseSpace(text)
}
