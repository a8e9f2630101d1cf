package pipeline

import (
	"github.com/ppiankov/lexharvest/internal/extract"
	"github.com/ppiankov/lexharvest/internal/model"
)

// ActType is the only document type this pipeline produces
const ActType = "statute"

// AssembleAct merges metadata and provisions into the published record.
// Provisions are deduplicated by reference before definitions are mined.
func AssembleAct(meta *model.LawMetadata, provisions []model.Provision, maxDefinitions int) *model.ParsedAct {
	deduped := model.DedupeProvisions(provisions)

	definitions := extract.ExtractDefinitions(deduped, maxDefinitions)
	if definitions == nil {
		definitions = []model.Definition{}
	}

	return &model.ParsedAct{
		ID:          meta.ID,
		Type:        ActType,
		Title:       meta.Title,
		TitleEN:     meta.Title,
		ShortName:   meta.ShortName,
		Status:      meta.Status,
		IssuedDate:  meta.IssuedDate,
		InForceDate: meta.InForceDate,
		URL:         meta.URL,
		Description: meta.Description,
		Provisions:  deduped,
		Definitions: definitions,
	}
}
