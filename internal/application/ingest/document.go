package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/turtacn/MedKG-Intelligence/internal/domain/drug"
	"github.com/turtacn/MedKG-Intelligence/internal/domain/kg"
	"github.com/turtacn/MedKG-Intelligence/pkg/errors"
	"github.com/turtacn/MedKG-Intelligence/pkg/types/medical"
)

// ============================================================================
// Staged document layout
// ============================================================================

const defaultDataSource = "Unknown"

var entitySections = map[string]medical.EntityType{
	"drugs":    medical.EntityDrug,
	"diseases": medical.EntityDisease,
	"genes":    medical.EntityGene,
}

// relationMapping maps one staged relation list onto a relation type and the
// record fields naming its endpoints.
type relationMapping struct {
	Type      medical.RelationType
	SourceKey string
	TargetKey string
}

var relationSections = map[string]relationMapping{
	"target_drug":    {Type: medical.RelationTargets, SourceKey: "target_name", TargetKey: "drug_name"},
	"drug_disease":   {Type: medical.RelationTreats, SourceKey: "drug_name", TargetKey: "disease_id"},
	"target_disease": {Type: medical.RelationAssociatedWith, SourceKey: "target_name", TargetKey: "disease_id"},
}

// Endpoint fields never become relation properties.
var endpointKeys = map[string]bool{"target_name": true, "drug_name": true, "disease_id": true}

var (
	commonEntityKeys = map[string]bool{"aliases": true, "data_sources": true, "standard_name": true}
	drugEntityKeys   = map[string]bool{
		"aliases": true, "data_sources": true, "standard_name": true,
		"generic_name": true, "dosage_form": true, "is_generic": true,
	}
)

// ============================================================================
// Parsed form
// ============================================================================

type stagedEntity struct {
	Entity  kg.Entity
	Aliases []string
}

type stagedRelation struct {
	Relation kg.Relation
}

// Document is a parsed staged ontology in document order.
type Document struct {
	Metadata  map[string]string
	Entities  []stagedEntity
	Relations []stagedRelation
	Checksum  string

	// SkippedRelations counts records missing an endpoint name.
	SkippedRelations int
	// UnknownSections lists entity or relation sections that were ignored.
	UnknownSections []string
}

// Parse validates raw and walks it in document order.  Drugs without a
// staged generic name are normalized with n.
func Parse(raw []byte, n *drug.Normalizer) (*Document, error) {
	if !gjson.ValidBytes(raw) {
		return nil, errors.New(errors.ErrCodeSnapshotInvalid, "staged document is not valid JSON")
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return nil, errors.New(errors.ErrCodeSnapshotInvalid, "staged document must be a JSON object")
	}
	if n == nil {
		n = drug.NewNormalizer()
	}

	sum := sha256.Sum256(raw)
	doc := &Document{Metadata: map[string]string{}, Checksum: hex.EncodeToString(sum[:])}

	root.Get("metadata").ForEach(func(k, v gjson.Result) bool {
		doc.Metadata[k.String()] = scalarString(v)
		return true
	})

	var parseErr error
	root.Get("entities").ForEach(func(section, entries gjson.Result) bool {
		t, ok := entitySections[section.String()]
		if !ok {
			doc.UnknownSections = append(doc.UnknownSections, "entities."+section.String())
			return true
		}
		entries.ForEach(func(name, info gjson.Result) bool {
			e, err := parseEntity(name.String(), info, t, n)
			if err != nil {
				parseErr = err
				return false
			}
			doc.Entities = append(doc.Entities, e)
			return true
		})
		return parseErr == nil
	})
	if parseErr != nil {
		return nil, parseErr
	}

	root.Get("relations").ForEach(func(section, records gjson.Result) bool {
		m, ok := relationSections[section.String()]
		if !ok {
			doc.UnknownSections = append(doc.UnknownSections, "relations."+section.String())
			return true
		}
		records.ForEach(func(_, rec gjson.Result) bool {
			src := strings.TrimSpace(rec.Get(m.SourceKey).String())
			dst := strings.TrimSpace(rec.Get(m.TargetKey).String())
			if src == "" || dst == "" {
				doc.SkippedRelations++
				return true
			}
			doc.Relations = append(doc.Relations, stagedRelation{Relation: kg.Relation{
				RelationType: m.Type,
				SourceName:   src,
				TargetName:   dst,
				Properties:   attributesExcept(rec, endpointKeys),
			}})
			return true
		})
		return true
	})
	return doc, nil
}

func parseEntity(name string, info gjson.Result, t medical.EntityType, n *drug.Normalizer) (stagedEntity, error) {
	if strings.TrimSpace(name) == "" {
		return stagedEntity{}, errors.New(errors.ErrCodeSnapshotInvalid, "entity with empty name").WithDetail(string(t))
	}
	if info.Exists() && !info.IsObject() {
		return stagedEntity{}, errors.New(errors.ErrCodeSnapshotInvalid, "entity info must be an object").WithDetail(name)
	}

	e := kg.Entity{
		Name:         name,
		StandardName: info.Get("standard_name").String(),
		Type:         t,
		Source:       dataSources(info.Get("data_sources")),
	}
	if e.StandardName == "" {
		e.StandardName = name
	}

	excluded := commonEntityKeys
	if t == medical.EntityDrug {
		excluded = drugEntityKeys
		e.GenericName = info.Get("generic_name").String()
		e.DosageForm = info.Get("dosage_form").String()
		e.IsGeneric = info.Get("is_generic").Bool()
		if e.GenericName == "" {
			norm := n.Normalize(name)
			e.GenericName, e.DosageForm, e.IsGeneric = norm.GenericName, norm.DosageForm, norm.IsGeneric
		}
	}
	e.Attributes = attributesExcept(info, excluded)

	var aliases []string
	seen := map[string]bool{}
	info.Get("aliases").ForEach(func(_, a gjson.Result) bool {
		alias := strings.TrimSpace(a.String())
		if alias == "" || alias == name || seen[alias] {
			return true
		}
		seen[alias] = true
		aliases = append(aliases, alias)
		return true
	})
	return stagedEntity{Entity: e, Aliases: aliases}, nil
}

// dataSources joins a staged source list with ",".
func dataSources(v gjson.Result) string {
	switch {
	case v.IsArray():
		var parts []string
		v.ForEach(func(_, s gjson.Result) bool {
			if str := strings.TrimSpace(s.String()); str != "" {
				parts = append(parts, str)
			}
			return true
		})
		if len(parts) > 0 {
			return strings.Join(parts, ",")
		}
	case v.Type == gjson.String && v.String() != "":
		return v.String()
	}
	return defaultDataSource
}

func attributesExcept(obj gjson.Result, excluded map[string]bool) kg.Attributes {
	attrs := kg.Attributes{}
	obj.ForEach(func(k, v gjson.Result) bool {
		key := k.String()
		if excluded[key] {
			return true
		}
		var val kg.Value
		if err := val.UnmarshalJSON([]byte(v.Raw)); err != nil {
			val = kg.StringValue(v.String())
		}
		attrs[key] = val
		return true
	})
	return attrs
}

func scalarString(v gjson.Result) string {
	if v.Type == gjson.String {
		return v.String()
	}
	return v.Raw
}

//Personal.AI order the ending
