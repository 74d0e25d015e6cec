// Package csvimport reads transaction records from CSV files laid out as
//
//	date,description,amount,category,source[,aiGenerated]
//
// Bad rows are reported per line and skipped; they never abort the import.
package csvimport

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"finsight/internal/models"
)

const minColumns = 5

// Result holds the parsed records and one message per rejected line.
type Result struct {
	Transactions []models.Transaction `json:"-"`
	Errors       []string             `json:"errors"`
}

// SuccessCount is the number of parsed records.
func (r Result) SuccessCount() int { return len(r.Transactions) }

// HasErrors reports whether any line was rejected.
func (r Result) HasErrors() bool { return len(r.Errors) > 0 }

// ImportFile parses the CSV file at path. A file that cannot be opened is
// reported as a single error entry.
func ImportFile(path string, skipHeader bool) Result {
	f, err := os.Open(path)
	if err != nil {
		return Result{Transactions: []models.Transaction{}, Errors: []string{fmt.Sprintf("Error reading file: %v", err)}}
	}
	defer func() { _ = f.Close() }()
	return Parse(f, skipHeader)
}

// Parse reads CSV rows from r. Blank lines are ignored; when skipHeader is
// set the first physical line is ignored too. Line numbers in error messages
// are 1-based physical line numbers.
func Parse(r io.Reader, skipHeader bool) Result {
	res := Result{Transactions: []models.Transaction{}, Errors: []string{}}

	scanner := bufio.NewScanner(r)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" || (skipHeader && lineNumber == 1) {
			continue
		}

		tx, err := parseLine(line)
		if err != nil {
			res.Errors = append(res.Errors, lineError(lineNumber, err))
			continue
		}
		res.Transactions = append(res.Transactions, tx)
	}
	if err := scanner.Err(); err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("Error reading file: %v", err))
	}
	return res
}

// lineError renders err as a user-facing "Line N: ..." message.
func lineError(lineNumber int, err error) string {
	msg := err.Error()
	r, size := utf8.DecodeRuneInString(msg)
	return fmt.Sprintf("Line %d: %c%s", lineNumber, unicode.ToUpper(r), msg[size:])
}

func parseLine(line string) (models.Transaction, error) {
	reader := csv.NewReader(strings.NewReader(line))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	fields, err := reader.Read()
	if err != nil {
		return models.Transaction{}, fmt.Errorf("invalid format: %v", err)
	}
	if len(fields) < minColumns {
		return models.Transaction{}, fmt.Errorf("invalid format: expected at least %d columns", minColumns)
	}

	date, err := time.Parse(models.DateLayout, strings.TrimSpace(fields[0]))
	if err != nil {
		return models.Transaction{}, fmt.Errorf("invalid date format: %s", fields[0])
	}

	description := strings.TrimSpace(fields[1])
	if description == "" {
		return models.Transaction{}, errors.New("description cannot be empty")
	}

	amount, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("invalid amount format: %s", fields[2])
	}

	category := strings.TrimSpace(fields[3])
	if category == "" {
		category = models.DefaultCategory
	}
	source := strings.TrimSpace(fields[4])
	if source == "" {
		source = models.DefaultSource
	}

	aiGenerated := len(fields) > minColumns && strings.EqualFold(strings.TrimSpace(fields[5]), "true")

	return models.Transaction{
		Date:        date,
		Description: description,
		Amount:      amount,
		Category:    category,
		Source:      source,
		AIGenerated: aiGenerated,
	}, nil
}
