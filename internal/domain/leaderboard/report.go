package leaderboard

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jung-kurt/gofpdf"
)

// WritePDF renders board as a one-page ranked table.
func WritePDF(w io.Writer, title string, board Board) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(title, true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, tr(title))
	pdf.Ln(10)
	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Generated %s, %d votes cast", board.GeneratedAt.Format("2006-01-02 15:04 MST"), board.TotalVotes))
	pdf.Ln(10)

	widths := []float64{14, 58, 88, 20}
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetFillColor(230, 230, 230)
	for i, header := range []string{"Rank", "Name", "Idea", "Votes"} {
		pdf.CellFormat(widths[i], 8, header, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, entry := range board.Entries {
		pdf.CellFormat(widths[0], 7, strconv.Itoa(entry.Rank), "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[1], 7, truncate(tr(entry.DisplayName), 32), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 7, truncate(tr(entry.SelectedIdea), 50), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[3], 7, strconv.Itoa(entry.VoteCount), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	if len(board.Entries) == 0 {
		pdf.CellFormat(0, 7, "No employees imported yet.", "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}

	return pdf.Output(w)
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max-3] + "..."
}
