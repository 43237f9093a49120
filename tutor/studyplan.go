package tutor

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// StudyPlanRequest is the typed contract for plan generation.
type StudyPlanRequest struct {
	UserID          string   `json:"user_id" binding:"required"`
	Subjects        []string `json:"subjects" binding:"required"`
	ExamDate        string   `json:"exam_date"`
	ExamChapters    []string `json:"exam_chapters"`
	DurationDays    int      `json:"duration_days"`
	Goals           []string `json:"goals"`
	CurrentLevel    string   `json:"current_level"`
	StudyHoursPerDay int     `json:"study_hours_per_day"`
}

// DailyTask is one day of the generated plan.
type DailyTask struct {
	Day     int      `json:"day"`
	Date    string   `json:"date"`
	Subject string   `json:"subject"`
	Topics  []string `json:"topics"`
	Hours   int      `json:"hours"`
	Notes   string   `json:"notes,omitempty"`
}

type StudyPlan struct {
	PlanID       string         `json:"plan_id"`
	UserID       string         `json:"user_id"`
	Subjects     []string       `json:"subjects"`
	ExamDate     string         `json:"exam_date"`
	ExamChapters []string       `json:"exam_chapters"`
	DurationDays int            `json:"duration_days"`
	Goals        []string       `json:"goals"`
	DailyTasks   []DailyTask    `json:"daily_tasks"`
	CreatedAt    time.Time      `json:"created_at"`
	Progress     map[string]any `json:"progress"`
	AISummary    string         `json:"ai_summary,omitempty"`
}

// availableDays works out how many study days the plan covers. An exam date
// wins over the legacy duration field; an exam today still yields one
// emergency study day.
func availableDays(req StudyPlanRequest, now time.Time) (int, error) {
	if req.ExamDate != "" {
		examDate, err := time.Parse("2006-01-02", req.ExamDate)
		if err != nil {
			return 0, fmt.Errorf("invalid exam_date %q, expected YYYY-MM-DD", req.ExamDate)
		}
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		days := int(examDate.Sub(today).Hours() / 24)
		if days < 0 {
			return 0, fmt.Errorf("exam date must be today or in the future")
		}
		if days == 0 {
			days = 1
		}
		return days, nil
	}
	if req.DurationDays > 0 {
		return req.DurationDays, nil
	}
	return 7, nil
}

// BuildStudyPlan assembles the deterministic plan skeleton. The AI summary is
// attached by the handler when the model call succeeds; the skeleton alone is
// a usable fallback when it does not.
func BuildStudyPlan(req StudyPlanRequest, now time.Time) (*StudyPlan, error) {
	days, err := availableDays(req, now)
	if err != nil {
		return nil, err
	}
	hours := req.StudyHoursPerDay
	if hours <= 0 {
		hours = 6
	}
	chapters := req.ExamChapters
	if len(chapters) == 0 {
		chapters = []string{"General topics"}
	}

	tasks := make([]DailyTask, 0, days)
	for day := 1; day <= days; day++ {
		subject := req.Subjects[(day-1)%len(req.Subjects)]
		task := DailyTask{
			Day:     day,
			Date:    now.AddDate(0, 0, day-1).Format("2006-01-02"),
			Subject: subject,
			Topics:  chaptersForDay(chapters, day, days),
			Hours:   hours,
		}
		if day == days && days > 1 {
			task.Subject = strings.Join(req.Subjects, ", ")
			task.Notes = "Full revision and mock test"
		}
		tasks = append(tasks, task)
	}

	examDate := req.ExamDate
	if examDate == "" {
		examDate = "Not specified"
	}
	return &StudyPlan{
		PlanID:       uuid.NewString(),
		UserID:       req.UserID,
		Subjects:     req.Subjects,
		ExamDate:     examDate,
		ExamChapters: chapters,
		DurationDays: days,
		Goals:        req.Goals,
		DailyTasks:   tasks,
		CreatedAt:    now,
		Progress:     map[string]any{"completed_days": 0, "overall_progress": 0.0},
	}, nil
}

// chaptersForDay spreads the exam chapters across the plan, repeating the list
// when there are more days than chapters.
func chaptersForDay(chapters []string, day, days int) []string {
	if len(chapters) == 0 {
		return nil
	}
	perDay := (len(chapters) + days - 1) / days
	if perDay < 1 {
		perDay = 1
	}
	start := ((day - 1) * perDay) % len(chapters)
	end := start + perDay
	if end > len(chapters) {
		end = len(chapters)
	}
	return chapters[start:end]
}
