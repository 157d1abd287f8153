package content

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"import-data/internal/importer"
)

// cityAliases maps canonical city ids to the spellings seen upstream:
// English, kanji and kana. Matching is done on folded text.
var cityAliases = map[string][]string{
	"tokyo": {
		"tokyo", "東京", "東京都", "とうきょう", "トウキョウ",
		"shibuya", "渋谷", "shinjuku", "新宿", "minato", "港区",
		"chiyoda", "千代田", "chuo-ku", "中央区", "meguro", "目黒", "shinagawa", "品川",
	},
	"yokohama": {"yokohama", "横浜", "よこはま", "ヨコハマ"},
	"osaka":    {"osaka", "大阪", "おおさか", "オオサカ"},
	"kyoto":    {"kyoto", "京都", "きょうと", "キョウト"},
	"kobe":     {"kobe", "神戸", "こうべ", "コウベ"},
	"nagoya":   {"nagoya", "名古屋", "なごや", "ナゴヤ"},
	"fukuoka":  {"fukuoka", "福岡", "ふくおか", "フクオカ"},
	"sapporo":  {"sapporo", "札幌", "さっぽろ", "サッポロ"},
	"sendai":   {"sendai", "仙台", "せんだい", "センダイ"},
	"okinawa":  {"okinawa", "沖縄", "おきなわ", "オキナワ", "naha", "那覇"},
}

type cityAlias struct {
	alias string
	city  string
}

// CityNormalizer maps free-form city names onto canonical city ids.
type CityNormalizer struct {
	exact  map[string]string
	byLen  []cityAlias // longest alias first
	logger importer.Logger
}

// NewCityNormalizer creates a CityNormalizer over the built-in city table.
func NewCityNormalizer(logger importer.Logger) *CityNormalizer {
	n := &CityNormalizer{exact: make(map[string]string), logger: logger}
	for city, aliases := range cityAliases {
		for _, a := range aliases {
			key := fold(a)
			n.exact[key] = city
			n.byLen = append(n.byLen, cityAlias{alias: key, city: city})
		}
		n.exact[fold(city)] = city
	}
	sort.Slice(n.byLen, func(i, j int) bool {
		if len(n.byLen[i].alias) != len(n.byLen[j].alias) {
			return len(n.byLen[i].alias) > len(n.byLen[j].alias)
		}
		return n.byLen[i].alias < n.byLen[j].alias
	})
	return n
}

// fold normalizes width and compatibility forms and removes case.
func fold(s string) string {
	return strings.TrimSpace(cases.Fold().String(norm.NFKC.String(s)))
}

// Normalize returns the canonical id for raw: an exact alias match first,
// then the longest alias contained in raw, else raw lowercased.
func (n *CityNormalizer) Normalize(raw string) string {
	key := fold(raw)
	if key == "" {
		return ""
	}
	if city, ok := n.exact[key]; ok {
		return city
	}
	for _, a := range n.byLen {
		if strings.Contains(key, a.alias) {
			return a.city
		}
	}

	fallback := strings.ToLower(strings.TrimSpace(raw))
	n.logger.Debug("unknown city", "city", raw, "using", fallback)
	return fallback
}
