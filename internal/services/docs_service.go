package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/phpdave11/gofpdf"

	"kocrou/internal/domain"
	"kocrou/internal/domain/models"
	"kocrou/internal/utils"
)

// DocsService renders the printable ticket of a reservation.
type DocsService struct {
	Reservations ReservationStore
	Settings     SettingsStore
	RequestID    string
	Loader       func(context.Context, int64) (ticketData, error)
}

type ticketData struct {
	Reservation models.Reservation
	Company     models.Settings
}

// GenerateTicket returns the PDF bytes and a download filename. Only the
// owner or an admin may fetch it; anyone else sees ReservationNotFound.
func (s DocsService) GenerateTicket(ctx context.Context, actor domain.Actor, id int64) ([]byte, string, error) {
	d, err := s.load(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if !actor.IsAdmin && d.Reservation.UserID != actor.UserID {
		return nil, "", domain.ReservationNotFound()
	}
	if d.Reservation.Status == models.StatusCancelled {
		return nil, "", domain.ValidationError{Field: "statut", Msg: "impossible d'imprimer une réservation annulée"}
	}
	utils.LogEvent(s.RequestID, "docs", "generate_ticket", fmt.Sprintf("reservation_id=%d", id))
	return buildTicketPDF(d)
}

func (s DocsService) load(ctx context.Context, id int64) (ticketData, error) {
	if s.Loader != nil {
		return s.Loader(ctx, id)
	}
	res, err := s.Reservations.GetByID(ctx, id)
	if err != nil {
		return ticketData{}, err
	}
	company := DefaultSettings
	if s.Settings != nil {
		if st, err := s.Settings.Get(ctx, DefaultSettings); err == nil {
			company = st
		} else {
			utils.LogEvent(s.RequestID, "docs", "settings_fallback", err.Error())
		}
	}
	return ticketData{Reservation: res, Company: company}, nil
}

func buildTicketPDF(d ticketData) ([]byte, string, error) {
	r := d.Reservation
	pdf := gofpdf.New("P", "mm", "A5", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Billet", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 9, tr(safe(d.Company.CompanyName, models.DefaultCompany)))
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 9)
	contact := strings.TrimSpace(strings.Join(nonEmpty(d.Company.Phone, d.Company.ContactEmail, d.Company.Address), " | "))
	if contact != "" {
		pdf.Cell(0, 5, tr(contact))
		pdf.Ln(8)
	}

	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 8, "BILLET DE VOYAGE")
	pdf.Ln(10)

	passenger := "-"
	if r.Owner != nil {
		passenger = safe(r.Owner.Name, r.Owner.Email)
	}
	lines := []string{
		fmt.Sprintf("Réservation   : #%d", r.ID),
		fmt.Sprintf("Passager      : %s", passenger),
		fmt.Sprintf("Trajet        : %s -> %s", safe(r.Trip.Origin, "-"), safe(r.Trip.Destination, "-")),
		fmt.Sprintf("Compagnie     : %s", safe(r.Trip.Company, "-")),
		fmt.Sprintf("Départ        : %s %s", utils.FormatFrenchDate(r.Trip.DepartureDate), safe(r.Trip.DepartureTime, "")),
		fmt.Sprintf("Siège         : %d", r.Seat),
		fmt.Sprintf("Prix          : %s", utils.FormatFCFA(r.Trip.Price)),
		fmt.Sprintf("Statut        : %s", r.Status),
		fmt.Sprintf("Code billet   : %s", ticketCode(r)),
	}
	pdf.SetFont("Courier", "", 11)
	for _, l := range lines {
		pdf.Cell(0, 7, tr(l))
		pdf.Ln(7)
	}

	pdf.Ln(5)
	pdf.SetFont("Helvetica", "I", 9)
	note := "Billet valable pour 1 passager et 1 siège. Présentez-le à l'embarquement."
	if hours := strings.TrimSpace(d.Company.WorkingHours); hours != "" {
		note += " Horaires : " + hours + "."
	}
	pdf.MultiCell(0, 5, tr(note), "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", domain.InternalError{Msg: "échec de génération du billet", Err: err}
	}
	filename := fmt.Sprintf("BILLET_%d_%s.pdf", r.ID, safeFilenamePart(r.Trip.Origin+"_"+r.Trip.Destination))
	return buf.Bytes(), filename, nil
}

func ticketCode(r models.Reservation) string {
	return fmt.Sprintf("KCR-%d-%d-S%02d", r.Trip.TripID, r.ID, r.Seat)
}

func nonEmpty(vals ...string) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func safe(v, fallback string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback
	}
	return v
}

func safeFilenamePart(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "NA"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_")
	s = replacer.Replace(s)
	if r := []rune(s); len(r) > 40 {
		s = string(r[:40])
	}
	return s
}
