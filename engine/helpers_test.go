package engine

import (
	"github.com/jonwraymond/entityindex/entity"
	"github.com/jonwraymond/entityindex/resolve"
)

func refFor(typ, key string, score float64) resolve.Reference {
	return resolve.Reference{
		Entity: entity.NewRecord(typ, map[string]any{"id": key}),
		Type:   typ,
		Key:    key,
		Score:  score,
	}
}
