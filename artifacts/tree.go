package artifacts

import (
	"encoding/json"
	"fmt"
	"time"
)

// flatten turns a project tree into single-table items: the METADATA rollup
// first, then every artifact in depth-first order. Child collections are
// stripped from each item; the sort key alone encodes the hierarchy.
func flatten(p Project, now time.Time) ([]map[string]any, Summary, error) {
	summary := Summary{
		ProjectID:   p.ID,
		Name:        p.Name,
		Description: p.Description,
		UpdatedAt:   now.UTC().Truncate(time.Second),
	}
	for _, e := range p.Epics {
		summary.Epics++
		for _, f := range e.Features {
			summary.Features++
			for _, u := range f.UseCases {
				summary.UseCases++
				summary.TestCases += len(u.TestCases)
			}
		}
	}

	pk := projectPK(p.ID)
	meta, err := encodeItem(summary, pk, metadataSK, "project", "")
	if err != nil {
		return nil, Summary{}, err
	}
	delete(meta, "project_id")
	meta["id"] = p.ID
	items := []map[string]any{meta}

	for _, e := range p.Epics {
		item, err := encodeItem(e, pk, epicSK(e.ID), "epic", "features")
		if err != nil {
			return nil, Summary{}, err
		}
		items = append(items, item)
		for _, f := range e.Features {
			item, err := encodeItem(f, pk, featureSK(e.ID, f.ID), "feature", "use_cases")
			if err != nil {
				return nil, Summary{}, err
			}
			items = append(items, item)
			for _, u := range f.UseCases {
				item, err := encodeItem(u, pk, useCaseSK(e.ID, f.ID, u.ID), "use_case", "test_cases")
				if err != nil {
					return nil, Summary{}, err
				}
				items = append(items, item)
				for _, t := range u.TestCases {
					item, err := encodeItem(t, pk, testCaseSK(e.ID, f.ID, u.ID, t.ID), "test_case", "")
					if err != nil {
						return nil, Summary{}, err
					}
					items = append(items, item)
				}
			}
		}
	}
	return items, summary, nil
}

// attachChildren reassembles the artifact items under project. Items arrive
// in sort-key order, which keeps every child slice ordered; parents are
// resolved in one pass per level so a child never precedes its parent.
func attachChildren(project *Project, items []map[string]any) error {
	var (
		byDepth   [5][]map[string]any
		epicIdx   = map[string]int{}
		featIdx   = map[string][2]int{}
		useIdx    = map[string][3]int{}
		sortKeyOf = func(item map[string]any) string {
			sk, _ := item["SK"].(string)
			return sk
		}
	)

	for _, item := range items {
		path, err := parseSortKey(sortKeyOf(item))
		if err != nil {
			return err
		}
		byDepth[path.Depth] = append(byDepth[path.Depth], item)
	}

	for _, item := range byDepth[1] {
		var e Epic
		if err := decodeItem(item, &e); err != nil {
			return err
		}
		project.Epics = append(project.Epics, e)
		epicIdx[e.ID] = len(project.Epics) - 1
	}
	for _, item := range byDepth[2] {
		path, _ := parseSortKey(sortKeyOf(item))
		i, ok := epicIdx[path.EpicID]
		if !ok {
			return orphanErr(sortKeyOf(item))
		}
		var f Feature
		if err := decodeItem(item, &f); err != nil {
			return err
		}
		epic := &project.Epics[i]
		epic.Features = append(epic.Features, f)
		featIdx[path.EpicID+"#"+path.FeatureID] = [2]int{i, len(epic.Features) - 1}
	}
	for _, item := range byDepth[3] {
		path, _ := parseSortKey(sortKeyOf(item))
		at, ok := featIdx[path.EpicID+"#"+path.FeatureID]
		if !ok {
			return orphanErr(sortKeyOf(item))
		}
		var u UseCase
		if err := decodeItem(item, &u); err != nil {
			return err
		}
		feature := &project.Epics[at[0]].Features[at[1]]
		feature.UseCases = append(feature.UseCases, u)
		useIdx[path.EpicID+"#"+path.FeatureID+"#"+path.UseCaseID] = [3]int{at[0], at[1], len(feature.UseCases) - 1}
	}
	for _, item := range byDepth[4] {
		path, _ := parseSortKey(sortKeyOf(item))
		at, ok := useIdx[path.EpicID+"#"+path.FeatureID+"#"+path.UseCaseID]
		if !ok {
			return orphanErr(sortKeyOf(item))
		}
		var t TestCase
		if err := decodeItem(item, &t); err != nil {
			return err
		}
		useCase := &project.Epics[at[0]].Features[at[1]].UseCases[at[2]]
		useCase.TestCases = append(useCase.TestCases, t)
	}
	return nil
}

func orphanErr(sk string) error {
	return fmt.Errorf("artifacts: item %q has no parent in the partition", sk)
}

// encodeItem converts a node to a table item via its JSON form, dropping the
// named child collection and stamping the key attributes.
func encodeItem(node any, pk, sk, entityType, childrenField string) (map[string]any, error) {
	raw, err := json.Marshal(node)
	if err != nil {
		return nil, fmt.Errorf("artifacts: encoding %s item: %w", entityType, err)
	}
	item := map[string]any{}
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, fmt.Errorf("artifacts: encoding %s item: %w", entityType, err)
	}
	if childrenField != "" {
		delete(item, childrenField)
	}
	item["PK"] = pk
	item["SK"] = sk
	item["entity_type"] = entityType
	return item, nil
}

func decodeItem(item map[string]any, node any) error {
	raw, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("artifacts: decoding item: %w", err)
	}
	if err := json.Unmarshal(raw, node); err != nil {
		return fmt.Errorf("artifacts: decoding item: %w", err)
	}
	return nil
}
