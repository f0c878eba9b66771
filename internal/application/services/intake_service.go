package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/medhaus/clinicflow/internal/domain/entities"
	"github.com/medhaus/clinicflow/internal/domain/repositories"
	apperrors "github.com/medhaus/clinicflow/pkg/errors"
)

// clusterKeywords maps an operational symptom cluster to its trigger words.
var clusterKeywords = map[string][]string{
	"Respiratory":     {"cough", "sore throat", "congestion", "runny nose", "sinus", "wheezing", "chest"},
	"GI":              {"nausea", "vomit", "diarrhea", "stomach", "abdominal", "cramp", "constipation"},
	"Musculoskeletal": {"pain", "joint", "muscle", "sprain", "strain", "back", "neck", "ankle", "knee"},
	"Dermatology":     {"rash", "itch", "skin", "hives", "burn", "wound", "bite"},
}

var (
	numberRe = regexp.MustCompile(`(\d+)`)
	wordRe   = regexp.MustCompile(`[a-zA-Z]{3,}`)
	splitRe  = regexp.MustCompile(`[,\n]+`)
	dobRe    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// IntakeService creates pre-encounter registrations from the intake form.
type IntakeService struct {
	repo repositories.EncounterRepository
}

// NewIntakeService creates a new intake service.
func NewIntakeService(repo repositories.EncounterRepository) *IntakeService {
	return &IntakeService{repo: repo}
}

// Register validates intake data, runs the symptom analysis, and stores a
// registration whose token the patient presents at check-in.
func (s *IntakeService) Register(ctx context.Context, firstName, lastName, phone, dob, symptoms, durationText string, window entities.ArrivalWindow) (*entities.Registration, error) {
	dob = strings.TrimSpace(dob)
	if dob != "" && !dobRe.MatchString(dob) {
		return nil, apperrors.NewValidationError("dob must be YYYY-MM-DD")
	}
	if durationText == "" {
		durationText = "1 day"
	}
	switch window {
	case entities.ArrivalNow, entities.ArrivalSoon, entities.ArrivalLater:
	default:
		window = entities.ArrivalNow
	}

	return s.repo.CreateRegistration(ctx, repositories.RegistrationInput{
		FirstName:     firstName,
		LastName:      lastName,
		Phone:         phone,
		DOB:           dob,
		SymptomText:   symptoms,
		DurationText:  durationText,
		ArrivalWindow: window,
		Intake:        AnalyzeIntake(symptoms, durationText),
	})
}

// AnalyzeIntake structures free-text symptoms into an operational summary:
// cluster, complexity, and a visit-duration estimate. Heuristic and
// non-diagnostic; the result only drives lane assignment and scheduling.
func AnalyzeIntake(symptoms, durationText string) entities.IntakeAnalysis {
	text := strings.ToLower(strings.TrimSpace(symptoms))

	var symptomList []string
	for _, part := range splitRe.Split(symptoms, -1) {
		if p := strings.TrimSpace(part); p != "" {
			symptomList = append(symptomList, capitalize(p))
		}
		if len(symptomList) == 6 {
			break
		}
	}
	if len(symptomList) == 0 && text != "" {
		short := text
		if len(short) > 60 {
			short = short[:60]
		}
		symptomList = []string{capitalize(short)}
	}

	cluster := scoreClusters(text)
	flags := MatchRedFlags(text)
	days := durationDays(durationText)
	symptomWords := len(wordRe.FindAllString(text, -1))

	complexity := "Low"
	visitDuration := 15
	switch {
	case len(flags) > 0 || symptomWords > 35 || days > 10:
		complexity = "High"
		visitDuration = 35
	case symptomWords > 20 || days > 4:
		complexity = "Moderate"
		visitDuration = 25
	}

	chief := "General symptom concern"
	if len(symptomList) > 0 {
		chief = symptomList[0]
	}

	flagsText := "none detected"
	if len(flags) > 0 {
		flagsText = strings.Join(flags, ", ")
	}
	summary := fmt.Sprintf(
		"Chief complaint: %s. Cluster: %s. Duration: %d day(s). Red flags: %s. "+
			"Operational complexity: %s. Estimated visit duration: %d-%d min. "+
			"Non-diagnostic operational summary for triage workflow only.",
		chief, cluster, days, flagsText, complexity, visitDuration, visitDuration+10)

	return entities.IntakeAnalysis{
		ChiefComplaint:   chief,
		SymptomList:      symptomList,
		Cluster:          cluster,
		RedFlags:         flags,
		Complexity:       complexity,
		VisitDurationMin: visitDuration,
		DurationDays:     days,
		Summary:          summary,
	}
}

func scoreClusters(text string) string {
	type scored struct {
		name  string
		score int
	}
	var ranked []scored
	for name, words := range clusterKeywords {
		n := 0
		for _, w := range words {
			if strings.Contains(text, w) {
				n++
			}
		}
		if n > 0 {
			ranked = append(ranked, scored{name, n})
		}
	}
	if len(ranked) == 0 {
		return "General"
	}
	best, second := scored{}, scored{}
	for _, r := range ranked {
		if r.score > best.score || (r.score == best.score && (best.name == "" || r.name < best.name)) {
			second = best
			best = r
		} else if r.score > second.score || (r.score == second.score && (second.name == "" || r.name < second.name)) {
			second = r
		}
	}
	if second.score > 0 {
		return best.name + "+" + second.name
	}
	return best.name
}

func durationDays(duration string) int {
	text := strings.ToLower(duration)
	n := 1
	if m := numberRe.FindString(text); m != "" {
		fmt.Sscanf(m, "%d", &n)
	}
	if strings.Contains(text, "week") {
		return n * 7
	}
	if strings.Contains(text, "month") {
		return n * 30
	}
	return n
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// ParseAge returns age in whole years for a YYYY-MM-DD date of birth, or
// -1 when unknown.
func ParseAge(dob string, now time.Time) int {
	born, err := time.Parse("2006-01-02", dob)
	if err != nil {
		return -1
	}
	years := now.Year() - born.Year()
	if now.YearDay() < born.YearDay() {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}
