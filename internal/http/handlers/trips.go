package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"kocrou/internal/domain/models"
	"kocrou/internal/http/middleware"
	"kocrou/internal/services"
)

// ListTrips supports ?depart=&arrivee= substring filters. Retired trips are
// hidden unless an admin asks for all=true.
func (a *App) ListTrips(c *gin.Context) {
	f := models.TripFilter{
		Origin:      strings.TrimSpace(c.Query("depart")),
		Destination: strings.TrimSpace(c.Query("arrivee")),
		ActiveOnly:  !(actor(c).IsAdmin && c.Query("all") == "true"),
	}
	trips, err := a.ledger(c).List(c.Request.Context(), f)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": trips})
}

func (a *App) GetTrip(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	t, err := a.ledger(c).Get(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": t})
}

func (a *App) CreateTrip(c *gin.Context) {
	var in models.TripInput
	if !BindJSONOrError(c, &in) {
		return
	}
	t, err := a.ledger(c).Create(c.Request.Context(), in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": t})
}

func (a *App) UpdateTrip(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var p models.TripPatch
	if !BindJSONOrError(c, &p) {
		return
	}
	t, err := a.ledger(c).Update(c.Request.Context(), id, p)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	a.recordTrip(c, models.LogTripUpdate, "Modification de trajet", t)
	c.JSON(http.StatusOK, gin.H{"success": true, "data": t})
}

// DeleteTrip retires the trip; existing reservations keep their snapshot.
func (a *App) DeleteTrip(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	t, err := a.ledger(c).Retire(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	a.recordTrip(c, models.LogTripDelete, "Suppression de trajet", t)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Trajet supprimé."})
}

func (a *App) AddSegment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var seg models.Segment
	if !BindJSONOrError(c, &seg) {
		return
	}
	t, err := a.ledger(c).AddSegment(c.Request.Context(), id, seg)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": t})
}

func (a *App) UpdateSegment(c *gin.Context) {
	tripID, ok := pathID(c, "id")
	if !ok {
		return
	}
	segID, ok := pathID(c, "segmentId")
	if !ok {
		return
	}
	var p models.SegmentPatch
	if !BindJSONOrError(c, &p) {
		return
	}
	t, err := a.ledger(c).UpdateSegment(c.Request.Context(), tripID, segID, p)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": t})
}

func (a *App) DeleteSegment(c *gin.Context) {
	tripID, ok := pathID(c, "id")
	if !ok {
		return
	}
	segID, ok := pathID(c, "segmentId")
	if !ok {
		return
	}
	t, err := a.ledger(c).DeleteSegment(c.Request.Context(), tripID, segID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": t})
}

// RepairRemaining recomputes remaining seats from active reservations.
func (a *App) RepairRemaining(c *gin.Context) {
	n, err := a.ledger(c).RepairRemaining(c.Request.Context())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "repaired": n})
}

func (a *App) recordTrip(c *gin.Context, t models.LogType, action string, trip models.Trip) {
	who := actor(c)
	a.activity(middleware.GetRequestID(c)).Record(c.Request.Context(), services.ActivityEntry{
		Actor:     &who,
		Type:      t,
		Action:    action,
		Details:   fmt.Sprintf("Trajet #%d %s → %s", trip.ID, trip.Origin, trip.Destination),
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
}
