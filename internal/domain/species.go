package domain

// scientificNames maps the common names used in cell definitions to the
// scientific names GBIF indexes. "Asian Carp Complex" is a management label,
// not a taxon; it searches as silver carp, the complex's leading edge in the
// basin.
var scientificNames = map[string]string{
	"Sea Lamprey":        "Petromyzon marinus",
	"Silver Carp":        "Hypophthalmichthys molitrix",
	"Bighead Carp":       "Hypophthalmichthys nobilis",
	"Asian Carp Complex": "Hypophthalmichthys molitrix",
	"Round Goby":         "Neogobius melanostomus",
	"Zebra Mussel":       "Dreissena polymorpha",
	"Eurasian Ruffe":     "Gymnocephalus cernua",
}

// ScientificName resolves a species common name for occurrence search.
// Unknown names return ok=false; callers short-circuit to zero occurrences
// without a network call.
func ScientificName(common string) (string, bool) {
	sci, ok := scientificNames[common]
	return sci, ok
}
