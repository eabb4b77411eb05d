// Package heuristic is the local fallback for transcript structuring, used
// only when the remote extraction endpoint is unavailable. It is a fixed
// table-and-regex parser; table order decides ties.
package heuristic

import (
	"regexp"
	"strings"

	"github.com/sahajseva/seva-gateway/internal/core/domain"
)

var (
	ageRe = regexp.MustCompile(`\d{2}`)

	// Unit words are matched and then stripped: "2 lakh" yields "2". The
	// scale is intentionally not applied; the upstream matcher receives the
	// same raw digit string the original clients sent. Applying the scale
	// here would silently change eligibility results.
	incomeRe = regexp.MustCompile(`\d+[\s,]*(?:लाख|हजार|[lL]akh|[tT]housand|[kK])`)

	digitsRe = regexp.MustCompile(`\d+`)
)

type keywordEntry struct {
	key      string
	keywords []string
}

// Female is registered before male so "female" never matches the shorter
// "male" substring first.
var genderTable = []keywordEntry{
	{key: "female", keywords: []string{"female", "महिला", "woman", "girl", "लड़की"}},
	{key: "male", keywords: []string{"male", "पुरुष", "man", "boy", "लड़का"}},
	{key: "other", keywords: []string{"अन्य"}},
}

var occupationTable = []keywordEntry{
	{key: "farmer", keywords: []string{"farmer", "किसान"}},
	{key: "student", keywords: []string{"student", "छात्र", "विद्यार्थी"}},
	{key: "teacher", keywords: []string{"teacher", "शिक्षक"}},
	{key: "labour", keywords: []string{"labour", "labor", "worker", "मजदूर"}},
	{key: "business", keywords: []string{"businessman", "business", "व्यापार", "दुकानदार"}},
	{key: "engineer", keywords: []string{"engineer", "इंजीनियर"}},
	{key: "doctor", keywords: []string{"doctor", "डॉक्टर"}},
}

var stateTable = []keywordEntry{
	{key: "uttar pradesh", keywords: []string{"uttar pradesh", "उत्तर प्रदेश", "उत्तरप्रदेश"}},
	{key: "maharashtra", keywords: []string{"maharashtra", "महाराष्ट्र"}},
	{key: "gujarat", keywords: []string{"gujarat", "गुजरात"}},
	{key: "delhi", keywords: []string{"delhi", "दिल्ली"}},
	{key: "bihar", keywords: []string{"bihar", "बिहार"}},
	{key: "madhya pradesh", keywords: []string{"madhya pradesh", "मध्य प्रदेश", "मध्यप्रदेश"}},
	{key: "rajasthan", keywords: []string{"rajasthan", "राजस्थान"}},
	{key: "west bengal", keywords: []string{"west bengal", "पश्चिम बंगाल"}},
	{key: "tamil nadu", keywords: []string{"tamil nadu", "तमिलनाडु"}},
	{key: "karnataka", keywords: []string{"karnataka", "कर्नाटक"}},
	{key: "kerala", keywords: []string{"kerala", "केरल"}},
	{key: "punjab", keywords: []string{"punjab", "पंजाब"}},
	{key: "haryana", keywords: []string{"haryana", "हरियाणा"}},
	{key: "odisha", keywords: []string{"odisha", "orissa", "ओडिशा"}},
	{key: "jharkhand", keywords: []string{"jharkhand", "झारखंड"}},
	{key: "telangana", keywords: []string{"telangana", "तेलंगाना"}},
	{key: "andhra pradesh", keywords: []string{"andhra pradesh", "आंध्र प्रदेश"}},
}

type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(transcript string) domain.CitizenProfile {
	lowered := strings.ToLower(transcript)

	profile := domain.CitizenProfile{
		Age:        ageRe.FindString(transcript),
		Gender:     lookupKeyword(genderTable, lowered),
		Occupation: lookupKeyword(occupationTable, lowered),
		State:      lookupKeyword(stateTable, lowered),
	}

	if match := incomeRe.FindString(transcript); match != "" {
		profile.Income = digitsRe.FindString(match)
	}

	return profile
}

func lookupKeyword(table []keywordEntry, lowered string) string {
	for _, entry := range table {
		for _, keyword := range entry.keywords {
			if strings.Contains(lowered, keyword) {
				return entry.key
			}
		}
	}
	return ""
}
