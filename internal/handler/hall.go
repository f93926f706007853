package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/movietix/cinema-booking-api/internal/model"
	"github.com/movietix/cinema-booking-api/internal/repository"
)

// HallHandler bundles repositories for admin hall management.
type HallHandler struct {
	Halls *repository.HallRepo
	Seats *repository.SeatRepo
}

func NewHallHandler(halls *repository.HallRepo, seats *repository.SeatRepo) *HallHandler {
	if halls == nil || seats == nil {
		panic("nil repository passed to NewHallHandler")
	}
	return &HallHandler{Halls: halls, Seats: seats}
}

type createHallReq struct {
	Name        string `json:"name"`
	Rows        uint32 `json:"rows"`
	SeatsPerRow uint32 `json:"seats_per_row"`
}

// maxHallSide keeps a typo in rows/seats_per_row from provisioning a
// million-seat hall.
const maxHallSide = 100

// CreateHall handles POST /v1/admin/halls.  The hall and its full seat
// grid are created in one transaction so a hall can never exist half
// provisioned.
func (h *HallHandler) CreateHall(c echo.Context) error {
	var req createHallReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	if req.Rows == 0 || req.SeatsPerRow == 0 || req.Rows > maxHallSide || req.SeatsPerRow > maxHallSide {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "rows and seats_per_row must be between 1 and 100"})
	}

	ctx := c.Request().Context()
	tx, err := h.Halls.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	hall := &model.Hall{Name: req.Name}
	if err := h.Halls.CreateTx(ctx, tx, hall); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create hall failed"})
	}

	seats := make([]model.Seat, 0, int(req.Rows)*int(req.SeatsPerRow))
	for row := uint32(1); row <= req.Rows; row++ {
		for num := uint32(1); num <= req.SeatsPerRow; num++ {
			seats = append(seats, model.Seat{HallID: hall.ID, Row: row, Number: num})
		}
	}
	if err := h.Seats.CreateBulkTx(ctx, tx, seats); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create seats failed"})
	}

	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}
	committed = true

	return c.JSON(http.StatusCreated, echo.Map{
		"hall":          hall,
		"rows":          req.Rows,
		"seats_per_row": req.SeatsPerRow,
		"total_seats":   len(seats),
	})
}

// ListHalls handles GET /v1/admin/halls with per-hall seat counts.
func (h *HallHandler) ListHalls(c echo.Context) error {
	halls, err := h.Halls.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list halls failed"})
	}
	if halls == nil {
		halls = []repository.HallSummary{}
	}
	return c.JSON(http.StatusOK, echo.Map{"halls": halls})
}

// GetHall handles GET /v1/admin/halls/:id, returning the hall with its
// grid dimensions derived from the seat table.
func (h *HallHandler) GetHall(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid hall id"})
	}
	ctx := c.Request().Context()
	hall, err := h.Halls.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrHallNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "hall not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	rows, perRow, err := h.Seats.Dimensions(ctx, id)
	if err != nil && !errors.Is(err, repository.ErrSeatNotFound) {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"hall":          hall,
		"rows":          rows,
		"seats_per_row": perRow,
	})
}
