package scoring

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// MaxMatchedKeywords bounds the keyword list stored on an applicant.
const MaxMatchedKeywords = 20

var nonWord = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)

var stopWords = toSet(
	"the", "and", "for", "with", "this", "that", "from", "have", "has",
	"was", "were", "been", "are", "will", "would", "could", "should",
	"can", "may", "also", "into", "than", "them", "these", "those",
	"there", "their", "about", "when", "where", "which", "who", "why",
	"how", "what", "but", "not", "your", "our", "you", "they", "she",
	"his", "her", "him", "its",
)

// technicalSkills are matched as plain substrings of the lowercased text, so
// short entries like "go" also hit inside longer words.
var technicalSkills = []string{
	"python", "java", "javascript", "typescript", "c++", "c#", "ruby", "php",
	"swift", "kotlin", "go", "rust", "scala", "r", "matlab",
	"html", "css", "react", "angular", "vue", "node", "nodejs", "express",
	"django", "flask", "fastapi", "spring", "asp.net", "rails",
	"sql", "mysql", "postgresql", "mongodb", "oracle", "redis", "cassandra",
	"dynamodb", "sqlite", "mariadb",
	"aws", "azure", "gcp", "docker", "kubernetes", "jenkins", "git", "github",
	"gitlab", "terraform", "ansible", "ci/cd", "linux", "unix",
	"machine learning", "deep learning", "tensorflow", "pytorch", "scikit-learn",
	"pandas", "numpy", "data analysis", "statistics", "nlp", "computer vision",
	"rest", "api", "graphql", "microservices", "agile", "scrum", "jira",
	"testing", "unit testing", "automation", "selenium",
}

// Result is the match of a candidate against a job posting.
type Result struct {
	Overall         float64
	KeywordScore    float64
	SkillScore      float64
	MatchedKeywords []string
	MatchedSkills   []string
}

// MatchScore is the integer score stored on the applicant.
func (r Result) MatchScore() int { return int(r.Overall) }

// KeywordString is the display form stored in the applicant's keywords field.
func (r Result) KeywordString() string { return strings.Join(r.MatchedKeywords, ", ") }

// Keywords lowercases text, drops punctuation and returns the words of at
// least three characters that are not stop words.
func Keywords(text string) []string {
	words := strings.Fields(nonWord.ReplaceAllString(strings.ToLower(text), " "))
	out := words[:0]
	for _, w := range words {
		if len([]rune(w)) < 3 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		out = append(out, w)
	}
	return out
}

// Skills returns the known technical skills mentioned in text.
func Skills(text string) []string {
	lower := strings.ToLower(text)
	var out []string
	for _, s := range technicalSkills {
		if strings.Contains(lower, s) {
			out = append(out, s)
		}
	}
	return out
}

// Score weighs keyword overlap at 60% and skill overlap at 40%. Candidate
// text is the resume plus cover letter; job text is description plus
// requirements.
func Score(resume, coverLetter, description, requirements string) Result {
	candidate := resume + "\n" + coverLetter
	job := description + "\n" + requirements

	jobWords := toSet(Keywords(job)...)
	candWords := toSet(Keywords(candidate)...)
	matchedWords := intersect(jobWords, candWords)

	jobSkills := toSet(Skills(job)...)
	candSkills := toSet(Skills(candidate)...)
	matchedSkills := intersect(jobSkills, candSkills)

	var r Result
	if strings.TrimSpace(resume+coverLetter) != "" && len(jobWords) > 0 {
		r.KeywordScore = round2(float64(len(matchedWords)) / float64(len(jobWords)) * 100)
	}
	if len(jobSkills) > 0 {
		r.SkillScore = round2(float64(len(matchedSkills)) / float64(len(jobSkills)) * 100)
	}
	r.Overall = math.Min(100, round2(r.KeywordScore*0.6+r.SkillScore*0.4))

	if len(matchedWords) > MaxMatchedKeywords {
		matchedWords = matchedWords[:MaxMatchedKeywords]
	}
	r.MatchedKeywords = matchedWords
	r.MatchedSkills = matchedSkills
	return r
}

func toSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// intersect returns the sorted common members of a and b.
func intersect(a, b map[string]struct{}) []string {
	out := []string{}
	for w := range a {
		if _, ok := b[w]; ok {
			out = append(out, w)
		}
	}
	sort.Strings(out)
	return out
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
