package ticketpdf

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"concerto-app/internal/domain/concerts"
	"concerto-app/internal/infra/qrcode"

	"github.com/go-pdf/fpdf"
)

const (
	pageWidth    = 595.28
	pageHeight   = 420.0
	headerHeight = 90.0
	marginLeft   = 36.0
	logoWidth    = 96.0
	codeWidth    = 180.0
	codePadding  = 16.0
	lineGap      = 20.0
)

type rgb struct{ r, g, b int }

var (
	backgroundColor = rgb{254, 248, 240}
	accentColor     = rgb{122, 40, 32}
	textColor       = rgb{68, 55, 48}
	white           = rgb{255, 255, 255}
)

// Details is everything printed on a ticket.
type Details struct {
	FirstName        string
	LastName         string
	Email            string
	Amount           float64
	Currency         string
	VerificationCode string // PNG data URL
	RegistrationID   string
}

func Filename(registrationID string) string {
	return "concerto-billet-" + registrationID + ".pdf"
}

type Renderer struct {
	event concerts.Event
	logo  func() []byte
}

func NewRenderer(event concerts.Event, logo func() []byte) *Renderer {
	if logo == nil {
		logo = PlaceholderLogo
	}
	return &Renderer{event: event, logo: logo}
}

// Render lays out a single landscape ticket page and returns the PDF bytes.
func (r *Renderer) Render(d Details) ([]byte, error) {
	code, err := qrcode.DecodeDataURL(d.VerificationCode)
	if err != nil {
		return nil, fmt.Errorf("render ticket: verification code: %w", err)
	}

	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: pageWidth, Ht: pageHeight},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle("Billet "+d.RegistrationID, true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	fill(pdf, backgroundColor)
	pdf.Rect(0, 0, pageWidth, pageHeight, "F")
	fill(pdf, accentColor)
	pdf.Rect(0, 0, pageWidth, headerHeight, "F")

	logo := pdf.RegisterImageOptionsReader("logo", fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(r.logo()))
	if logo != nil && pdf.Ok() {
		logoHeight := logo.Height() / logo.Width() * logoWidth
		pdf.ImageOptions("logo", marginLeft, 46, logoWidth, logoHeight, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	}
	if !pdf.Ok() {
		// logo failures are non-fatal
		pdf.ClearError()
	}

	pdf.SetFont("Helvetica", "B", 22)
	textFill(pdf, white)
	pdf.Text(marginLeft, 70, tr("Billet d'entrée — Concerto"))

	pdf.SetFont("Helvetica", "B", 18)
	textFill(pdf, accentColor)
	pdf.Text(marginLeft, 110, tr(r.event.Title))

	pdf.SetFont("Helvetica", "", 15)
	textFill(pdf, textColor)
	pdf.Text(marginLeft, 140, tr("Place confirmée pour le "+strings.ToLower(r.event.Date)))

	y := 180.0
	pdf.SetFont("Helvetica", "", 12)
	for _, line := range r.detailLines(d) {
		pdf.Text(marginLeft, y, tr(line))
		y += lineGap
	}

	pdf.SetFont("Helvetica", "", 11)
	pdf.Text(marginLeft, y+10, tr("Présente ce billet (ou ton QR code) à l'accueil pour accéder au concert."))

	info := pdf.RegisterImageOptionsReader("code", fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(code))
	if info == nil || !pdf.Ok() {
		return nil, fmt.Errorf("render ticket: verification code image: %w", pdf.Error())
	}
	codeHeight := info.Height() / info.Width() * codeWidth
	codeX := pageWidth - codeWidth - 48
	codeY := pageHeight/2 - codeHeight/2 - 10

	fill(pdf, white)
	pdf.SetDrawColor(accentColor.r, accentColor.g, accentColor.b)
	pdf.SetLineWidth(1.5)
	pdf.Rect(codeX-codePadding, codeY-codePadding, codeWidth+2*codePadding, codeHeight+2*codePadding, "FD")
	pdf.ImageOptions("code", codeX, codeY, codeWidth, codeHeight, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render ticket: %w", err)
	}
	if buf.Len() == 0 {
		return nil, errors.New("render ticket: empty document")
	}
	return buf.Bytes(), nil
}

func (r *Renderer) detailLines(d Details) []string {
	return []string{
		"Participant · " + strings.TrimSpace(d.FirstName+" "+d.LastName),
		"Email · " + d.Email,
		"Participation · " + concerts.FormatAmount(d.Amount, d.Currency),
		"Date · " + r.event.Date + " · " + r.event.Time,
		"Lieu · " + r.event.Venue,
		"Adresse · " + r.event.Address,
		"Référence · " + d.RegistrationID,
	}
}

func fill(pdf *fpdf.Fpdf, c rgb)     { pdf.SetFillColor(c.r, c.g, c.b) }
func textFill(pdf *fpdf.Fpdf, c rgb) { pdf.SetTextColor(c.r, c.g, c.b) }
