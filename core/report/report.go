package report

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/pkg/errors"

	"github.com/jbkiprop/studentos/core"
	"github.com/jbkiprop/studentos/core/academic"
)

const (
	// BatchZipName is the archive name served for batch downloads.
	BatchZipName = "PTM_Batch_Reports.zip"

	defaultRemarks     = "No remarks provided."
	defaultImprovement = "Continue pushing for excellence."
)

var ErrInvalidCard = errors.New("report card is missing a username")

// Card is everything needed to render one student's report card.
type Card struct {
	Username        string
	FullName        string
	AdmissionNumber string
	Term            string
	Data            academic.ReportData
}

func (c Card) Validate() error {
	if c.Username == "" {
		return ErrInvalidCard
	}
	return nil
}

// Filename names a single report card download.
func (c Card) Filename() string {
	return fmt.Sprintf("Report_Card_%s.pdf", c.Username)
}

// Render writes the report card PDF to w.
func Render(c Card, w io.Writer) error {
	if err := c.Validate(); err != nil {
		return err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	// institution header
	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(0, 10, core.Conf.InstitutionName, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 6, "STUDENT REPORT CARD", "", 1, "C", false, 0, "")
	pdf.SetDrawColor(40, 145, 108)
	pdf.SetLineWidth(0.5)
	pdf.Line(20, pdf.GetY()+2, 190, pdf.GetY()+2)
	pdf.Ln(10)

	// student block
	pdf.SetFont("Arial", "", 10)
	writeField := func(label, value string) {
		pdf.SetFont("Arial", "", 10)
		pdf.Cell(45, 6, label)
		pdf.SetFont("Arial", "B", 10)
		pdf.Cell(0, 6, value)
		pdf.Ln(5)
	}
	name := c.FullName
	if name == "" {
		name = c.Username
	}
	term := c.Term
	if term == "" {
		term = c.Data.Remark.Term
	}
	if term == "" {
		term = "Term 1"
	}
	writeField("Student:", name)
	writeField("Admission Number:", c.AdmissionNumber)
	writeField("Term:", term)
	writeField("Date Issued:", time.Now().Format("02 Jan 2006"))
	pdf.Ln(6)

	// grade table
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(90, 7, "Course", "1", 0, "L", true, 0, "")
	pdf.CellFormat(40, 7, "Average", "1", 0, "C", true, 0, "")
	pdf.CellFormat(40, 7, "Result", "1", 1, "C", true, 0, "")
	pdf.SetFont("Arial", "", 10)
	if len(c.Data.CourseAverages) == 0 {
		pdf.CellFormat(170, 7, "No graded courses this term.", "1", 1, "C", false, 0, "")
	}
	for _, avg := range c.Data.CourseAverages {
		result := "Pass"
		if avg.Average < 50 {
			result = "Fail"
		}
		pdf.CellFormat(90, 7, avg.Course, "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 7, fmt.Sprintf("%.1f", avg.Average), "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 7, result, "1", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	gpa := academic.CumulativeGPA(c.Data.CourseAverages)
	writeField("Cumulative GPA:", fmt.Sprintf("%.2f", gpa))

	present := academic.PresentCount(c.Data.StatusCounts)
	total := academic.TotalCount(c.Data.StatusCounts)
	writeField("Attendance Rate:", academic.AttendanceRate(present, total))
	pdf.Ln(4)

	// remarks
	remarks := c.Data.Remark.Remarks.String
	if remarks == "" {
		remarks = defaultRemarks
	}
	improvement := c.Data.Remark.ImprovementAreas.String
	if improvement == "" {
		improvement = defaultImprovement
	}
	pdf.SetFont("Arial", "B", 10)
	pdf.Cell(0, 6, "Teacher's Remarks")
	pdf.Ln(6)
	pdf.SetFont("Arial", "", 10)
	pdf.MultiCell(0, 5, remarks, "", "L", false)
	pdf.Ln(2)
	pdf.SetFont("Arial", "B", 10)
	pdf.Cell(0, 6, "Areas of Improvement")
	pdf.Ln(6)
	pdf.SetFont("Arial", "", 10)
	pdf.MultiCell(0, 5, improvement, "", "L", false)
	pdf.Ln(14)

	// signature footer
	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.3)
	pdf.Line(20, pdf.GetY(), 80, pdf.GetY())
	pdf.Ln(2)
	pdf.SetFont("Arial", "I", 9)
	pdf.Cell(0, 5, "Dean of Academics Signature")

	return errors.Wrap(pdf.Output(w), "writing pdf")
}

// WriteBatchZip renders one PDF per card into a ZIP archive on w.
// Cards that fail to render are logged and skipped so one bad record
// never sinks the whole batch. It reports how many cards made it in.
func WriteBatchZip(cards []Card, w io.Writer, log core.Logger) (int, error) {
	zw := zip.NewWriter(w)
	var written int
	for _, c := range cards {
		// render to a buffer first so a failed card leaves no partial entry
		var buf bytes.Buffer
		if err := Render(c, &buf); err != nil {
			log.Warn("skipping report card", "username", c.Username, "error", err)
			continue
		}
		f, err := zw.Create(c.Filename())
		if err != nil {
			return written, errors.Wrap(err, "creating zip entry")
		}
		if _, err := f.Write(buf.Bytes()); err != nil {
			return written, errors.Wrap(err, "writing zip entry")
		}
		written++
	}
	return written, errors.Wrap(zw.Close(), "closing zip")
}
