package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"kocrou/internal/domain"
	"kocrou/internal/domain/models"
	"kocrou/internal/http/middleware"
	"kocrou/internal/services"
	"kocrou/internal/utils"
)

const defaultReservationPageSize = 10

func (a *App) CreateReservation(c *gin.Context) {
	var in services.ReserveInput
	if !BindJSONOrError(c, &in) {
		return
	}
	if in.TripID <= 0 {
		RespondError(c, http.StatusBadRequest, "L'ID du trajet est requis.", nil)
		return
	}
	in.UserID = actor(c).UserID
	res, err := a.allocator(c).Reserve(c.Request.Context(), in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Réservation créée avec succès.",
		"data":    res,
	})
}

func (a *App) MyReservations(c *gin.Context) {
	out, err := a.allocator(c).ListByUser(c.Request.Context(), actor(c).UserID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (a *App) GetReservation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	res, err := a.allocator(c).Get(c.Request.Context(), actor(c), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": res})
}

// ListAllReservations serves the admin table: all=true returns every row,
// otherwise the filters and page/limit apply.
func (a *App) ListAllReservations(c *gin.Context) {
	var f models.ReservationFilter
	if c.Query("all") != "true" {
		status := strings.TrimSpace(c.Query("statut"))
		if status != "" && status != "toutes" {
			f.Status = models.ReservationStatus(status)
		}
		f.Company = strings.TrimSpace(c.Query("compagnie"))
		f.Origin = strings.TrimSpace(c.Query("villeDepart"))
		f.Destination = strings.TrimSpace(c.Query("villeArrivee"))
		f.User = strings.TrimSpace(c.Query("email"))
		if raw := strings.TrimSpace(c.Query("dateDepart")); raw != "" {
			day, err := utils.ParseDate(raw)
			if err != nil {
				RespondDomainError(c, domain.ValidationError{Field: "dateDepart", Msg: "date invalide, format attendu AAAA-MM-JJ"})
				return
			}
			f.Day = &day
		}
		f.Page = queryInt(c, "page", 1)
		f.Limit = queryInt(c, "limit", defaultReservationPageSize)
		if f.Limit <= 0 {
			f.Limit = defaultReservationPageSize
		}
	}

	out, page, err := a.allocator(c).ListAll(c.Request.Context(), f)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	if f.Limit == 0 {
		c.JSON(http.StatusOK, gin.H{"success": true, "total": page.Total, "data": out})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"currentPage": page.Page,
		"totalPages":  page.TotalPages,
		"total":       page.Total,
		"data":        out,
	})
}

func (a *App) CancelReservation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	res, err := a.allocator(c).Cancel(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	who := actor(c)
	a.activity(middleware.GetRequestID(c)).Record(c.Request.Context(), services.ActivityEntry{
		Actor:     &who,
		Type:      models.LogReservationCancel,
		Action:    "Annulation de réservation",
		Details:   fmt.Sprintf("Réservation #%d (siège %d, %s → %s)", res.ID, res.Seat, res.Trip.Origin, res.Trip.Destination),
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Réservation annulée.", "data": res})
}

func (a *App) ValidateReservation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	res, err := a.allocator(c).Validate(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Réservation validée.", "data": res})
}

func (a *App) DeleteReservation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if _, err := a.allocator(c).Delete(c.Request.Context(), actor(c), id); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Réservation supprimée."})
}

// ReservedSeats lists the seats held on a trip.
func (a *App) ReservedSeats(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	seats, err := a.allocator(c).ListSeats(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, seats)
}

// ReservationTicket streams the PDF ticket inline.
func (a *App) ReservationTicket(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	pdf, filename, err := a.docs(c).GenerateTicket(c.Request.Context(), actor(c), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Header("Content-Disposition", `inline; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}
