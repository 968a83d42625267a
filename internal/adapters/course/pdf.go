package course

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/okian/jacktrack/internal/domain/model"
)

var (
	holeLine   = regexp.MustCompile(`(?i)hole\s*(\d+)\D+?par\s*(\d+)(?:\D+?(\d+)\s*(?:yds|yards|yd|y)\b)?`)
	courseLine = regexp.MustCompile(`(?im)^\s*course\s*:\s*(.+?)\s*$`)
)

// PDFFile reads a course from a PDF scorecard.
func PDFFile(path string) Provider {
	return ProviderFunc(func(_ context.Context) (model.Course, error) {
		text, err := readPDFText(path)
		if err != nil {
			return model.Course{}, err
		}
		return ParseScorecardText(text)
	})
}

func readPDFText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text %s: %w", path, err)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("read pdf text %s: %w", path, err)
	}
	return string(b), nil
}

// ParseScorecardText extracts holes from scorecard text containing entries
// such as "Hole 7 Par 4 392 yds" and an optional "Course: <name>" line.
func ParseScorecardText(text string) (model.Course, error) {
	var c model.Course
	if m := courseLine.FindStringSubmatch(text); m != nil {
		c.Name = strings.TrimSpace(m[1])
	}
	for _, m := range holeLine.FindAllStringSubmatch(text, -1) {
		n, _ := strconv.Atoi(m[1])
		p, _ := strconv.Atoi(m[2])
		h := model.Hole{Number: n, Par: p}
		if m[3] != "" {
			h.Yardage, _ = strconv.Atoi(m[3])
		}
		c.Holes = append(c.Holes, h)
	}
	if len(c.Holes) == 0 {
		return model.Course{}, fmt.Errorf("%w: no hole lines found", ErrInvalidCourse)
	}
	return c, nil
}
