// Package export renders user statistics as an XLSX workbook.
package export

import (
	"fmt"
	"io"

	"bilgi-quiz-service/internal/domain"
	"bilgi-quiz-service/internal/stats"
	"github.com/xuri/excelize/v2"
)

const (
	SummarySheet      = "Summary"
	CategoriesSheet   = "Categories"
	DifficultiesSheet = "Difficulties"
	RecentGamesSheet  = "Recent Games"
)

// WriteStatistics writes a workbook with one sheet per statistics view.
func WriteStatistics(w io.Writer, s domain.UserStatistics) error {
	ov := stats.Summarize(s)

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return err
	}
	summary := [][]interface{}{
		{"Metric", "Value"},
		{"Games played", ov.TotalGamesPlayed},
		{"Questions answered", ov.TotalQuestionsAnswered},
		{"Correct answers", ov.CorrectAnswers},
		{"Incorrect answers", ov.IncorrectAnswers},
		{"Accuracy %", ov.Accuracy},
		{"Recent mean %", ov.Recent.Mean},
		{"Recent median %", ov.Recent.Median},
		{"Recent best %", ov.Recent.Best},
	}
	if err := writeRows(f, SummarySheet, summary); err != nil {
		return err
	}

	if err := writeBreakdown(f, CategoriesSheet, "Category", ov.Categories); err != nil {
		return err
	}
	if err := writeBreakdown(f, DifficultiesSheet, "Difficulty", ov.Difficulties); err != nil {
		return err
	}

	games := [][]interface{}{{"Date", "Score", "Questions", "Percentage"}}
	for _, g := range ov.LastGames {
		games = append(games, []interface{}{g.Date.UTC().Format("2006-01-02 15:04:05"), g.Score, g.TotalQuestions, g.Percentage})
	}
	if err := newSheet(f, RecentGamesSheet); err != nil {
		return err
	}
	if err := writeRows(f, RecentGamesSheet, games); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeBreakdown(f *excelize.File, sheet, label string, rows []stats.LabelAccuracy) error {
	if err := newSheet(f, sheet); err != nil {
		return err
	}
	out := [][]interface{}{{label, "Total", "Correct", "Accuracy %"}}
	for _, r := range rows {
		out = append(out, []interface{}{r.Label, r.Total, r.Correct, r.Accuracy})
	}
	return writeRows(f, sheet, out)
}

func newSheet(f *excelize.File, sheet string) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", sheet, err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}
	return nil
}
