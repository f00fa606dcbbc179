package detector

import "github.com/casewarden/discoveryhub/internal/objects"

// specialLexicons are the fixed term lists for the statutorily special
// categories. Terms are matched whole-word, case-insensitive.
var specialLexicons = []struct {
	category objects.DataCategory
	terms    []string
}{
	{
		category: objects.CategoryHealth,
		terms: []string{
			"diagnosis", "prescription", "medication", "chemotherapy",
			"diabetes", "depression", "psychiatric", "sick leave",
			"disability", "surgery", "hiv", "blood pressure",
		},
	},
	{
		category: objects.CategoryReligion,
		terms: []string{
			"church", "mosque", "synagogue", "baptism", "catholic",
			"protestant", "muslim", "jewish", "buddhist", "religious",
		},
	},
	{
		category: objects.CategoryUnion,
		terms: []string{
			"trade union", "union membership", "union dues", "shop steward",
			"collective bargaining", "works council", "strike ballot",
		},
	},
	{
		category: objects.CategoryPolitical,
		terms: []string{
			"party membership", "political party", "campaign donation",
			"voted for", "election rally", "party conference", "activist",
		},
	},
}
