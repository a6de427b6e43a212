package species

type Species struct {
	ID   string
	Name string
}

// Breed pertenece a exactamente una especie.
type Breed struct {
	ID        string
	SpeciesID string
	Name      string
}

const (
	SpeciesDog = "dog"
	SpeciesCat = "cat"
)

// Razas sembradas por especie. El id de la raza es "<especie>-<slug>".
var (
	dogBreeds = []string{"labrador", "golden_retriever", "german_shepherd", "bulldog", "poodle", "chihuahua", "beagle", "other"}
	catBreeds = []string{"persian", "siamese", "maine_coon", "bengal", "sphynx", "common", "other"}
)

// Catalog devuelve el catálogo inicial que siembra `migrate`.
func Catalog() ([]Species, []Breed) {
	sp := []Species{
		{ID: SpeciesDog, Name: "Dog"},
		{ID: SpeciesCat, Name: "Cat"},
	}
	var br []Breed
	for _, b := range dogBreeds {
		br = append(br, Breed{ID: SpeciesDog + "-" + b, SpeciesID: SpeciesDog, Name: displayName(b)})
	}
	for _, b := range catBreeds {
		br = append(br, Breed{ID: SpeciesCat + "-" + b, SpeciesID: SpeciesCat, Name: displayName(b)})
	}
	return sp, br
}

// "golden_retriever" => "Golden Retriever"
func displayName(slug string) string {
	out := []byte(slug)
	up := true
	for i, c := range out {
		switch {
		case c == '_':
			out[i] = ' '
			up = true
		case up && c >= 'a' && c <= 'z':
			out[i] = c - 'a' + 'A'
			up = false
		default:
			up = false
		}
	}
	return string(out)
}
