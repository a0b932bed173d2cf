package usecase

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/atvirokodosprendimai/mongoschema/internal/core/domain"
)

//go:embed validators/*.json
var validatorFS embed.FS

// PersonSchemaV2 is the evolved T_Person validator applied with UpdateValidator.
const PersonSchemaV2 = "T_Person.v2"

// CatalogEntry is a named validator shipped with the binary.
type CatalogEntry struct {
	Name       string
	Collection string
	Validator  domain.Value
}

// SampleCollections lists the collections the seed service manages, in
// creation order.
var SampleCollections = []string{
	domain.CollectionUsers,
	domain.CollectionOrders,
	domain.CollectionUserDetails,
	domain.CollectionUserRelations,
	domain.CollectionProducts,
}

// CatalogValidator loads the validator stored under name. Versioned names
// such as T_Person.v2 target the collection before the first dot.
func CatalogValidator(name string) (CatalogEntry, error) {
	raw, err := validatorFS.ReadFile(path.Join("validators", name+".json"))
	if err != nil {
		return CatalogEntry{}, fmt.Errorf("catalog validator %q: %w", name, domain.ErrNotFound)
	}
	v, err := domain.ParseJSON(raw)
	if err != nil {
		return CatalogEntry{}, fmt.Errorf("parse catalog validator %q: %w", name, err)
	}
	collection, _, _ := strings.Cut(name, ".")
	return CatalogEntry{Name: name, Collection: collection, Validator: v}, nil
}

// CatalogNames returns every validator name in the catalog.
func CatalogNames() []string {
	entries, err := fs.ReadDir(validatorFS, "validators")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(names)
	return names
}

// SampleCatalog returns the validators of SampleCollections.
func SampleCatalog() ([]CatalogEntry, error) {
	out := make([]CatalogEntry, 0, len(SampleCollections))
	for _, name := range SampleCollections {
		entry, err := CatalogValidator(name)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}
