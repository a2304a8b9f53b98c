package handler

import (
    "context"
    "encoding/json"
    "errors"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/mock"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/parking-slot-reservation/internal/lifecycle"
    "github.com/iliyamo/parking-slot-reservation/internal/middleware"
    "github.com/iliyamo/parking-slot-reservation/internal/model"
    "github.com/iliyamo/parking-slot-reservation/internal/repository"
    "github.com/iliyamo/parking-slot-reservation/internal/sweeper"
    "github.com/iliyamo/parking-slot-reservation/internal/validation"
)

type MockEngine struct{ mock.Mock }

func (m *MockEngine) result(args mock.Arguments) (*model.Booking, error) {
    b, _ := args.Get(0).(*model.Booking)
    return b, args.Error(1)
}

func (m *MockEngine) Create(ctx context.Context, req lifecycle.CreateRequest) (*model.Booking, error) {
    return m.result(m.Called(ctx, req))
}

func (m *MockEngine) Advance(ctx context.Context, id uint64) (*model.Booking, error) {
    return m.result(m.Called(ctx, id))
}

func (m *MockEngine) CheckIn(ctx context.Context, id uint64) (*model.Booking, error) {
    return m.result(m.Called(ctx, id))
}

func (m *MockEngine) CheckOut(ctx context.Context, id uint64) (*model.Booking, error) {
    return m.result(m.Called(ctx, id))
}

type MockReader struct{ mock.Mock }

func (m *MockReader) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
    args := m.Called(ctx, id)
    b, _ := args.Get(0).(*model.Booking)
    return b, args.Error(1)
}

type MockSlots struct{ mock.Mock }

func (m *MockSlots) List(ctx context.Context, f model.SlotFilter) ([]model.Slot, error) {
    args := m.Called(ctx, f)
    s, _ := args.Get(0).([]model.Slot)
    return s, args.Error(1)
}

type MockSweeper struct{ mock.Mock }

func (m *MockSweeper) RunOnce(ctx context.Context) (int, error) {
    args := m.Called(ctx)
    return args.Int(0), args.Error(1)
}

// request runs h on a fresh context authenticated as user/role.
func request(method, target, body string, user, role string, params map[string]string, h echo.HandlerFunc) *httptest.ResponseRecorder {
    e := echo.New()
    req := httptest.NewRequest(method, target, strings.NewReader(body))
    req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    rec := httptest.NewRecorder()
    c := e.NewContext(req, rec)
    for k, v := range params {
        c.SetParamNames(k)
        c.SetParamValues(v)
    }
    if user != "" {
        c.Set("user_id", user)
        c.Set("role", role)
    }
    _ = h(c)
    return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) lifecycle.Result {
    t.Helper()
    var r lifecycle.Result
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &r))
    return r
}

func TestBookingHandler_Create(t *testing.T) {
    engine := new(MockEngine)
    h := NewBookingHandler(engine, new(MockReader))
    booked := &model.Booking{ID: 9, UserID: 1, VehicleID: 10, SlotID: 5, FareCents: 2000, Status: model.BookingBooked, BookingTime: time.Now()}
    engine.On("Create", mock.Anything, lifecycle.CreateRequest{UserID: 1, VehicleID: 10, SlotID: 5, FareCents: 2000}).Return(booked, nil).Once()

    rec := request(http.MethodPost, "/v1/bookings", `{"vehicle_id":10,"slot_id":5,"fare":20}`, "1", middleware.RoleCustomer, nil, h.Create)
    assert.Equal(t, http.StatusCreated, rec.Code)
    r := decode(t, rec)
    assert.Equal(t, lifecycle.CodeSuccess, r.Code)
    assert.Equal(t, lifecycle.OutcomeOK, r.Outcome)
    engine.AssertExpectations(t)
}

func TestBookingHandler_CreateRejects(t *testing.T) {
    tests := []struct {
        name   string
        body   string
        role   string
        status int
    }{
        {"missing slot", `{"vehicle_id":10}`, middleware.RoleCustomer, http.StatusBadRequest},
        {"negative fare", `{"vehicle_id":10,"slot_id":5,"fare":-1}`, middleware.RoleCustomer, http.StatusBadRequest},
        {"negative id", `{"vehicle_id":-10,"slot_id":5}`, middleware.RoleCustomer, http.StatusBadRequest},
        {"malformed", `{`, middleware.RoleCustomer, http.StatusBadRequest},
        {"other user", `{"user_id":2,"vehicle_id":10,"slot_id":5}`, middleware.RoleCustomer, http.StatusForbidden},
    }
    for _, tc := range tests {
        t.Run(tc.name, func(t *testing.T) {
            engine := new(MockEngine)
            h := NewBookingHandler(engine, new(MockReader))
            rec := request(http.MethodPost, "/v1/bookings", tc.body, "1", tc.role, nil, h.Create)
            assert.Equal(t, tc.status, rec.Code)
            engine.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
        })
    }
}

func TestBookingHandler_CreateForOtherUserAsOperator(t *testing.T) {
    engine := new(MockEngine)
    h := NewBookingHandler(engine, new(MockReader))
    engine.On("Create", mock.Anything, lifecycle.CreateRequest{UserID: 2, VehicleID: 10, SlotID: 5}).
        Return(&model.Booking{ID: 3, UserID: 2}, nil).Once()

    rec := request(http.MethodPost, "/v1/bookings", `{"user_id":2,"vehicle_id":10,"slot_id":5}`, "1", middleware.RoleOperator, nil, h.Create)
    assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestBookingHandler_CreateConflict(t *testing.T) {
    engine := new(MockEngine)
    h := NewBookingHandler(engine, new(MockReader))
    conflict := &lifecycle.Error{Kind: lifecycle.KindConflict, Op: "create", Msg: "an active booking already exists for this slot or vehicle"}
    engine.On("Create", mock.Anything, mock.Anything).Return(nil, conflict).Once()

    rec := request(http.MethodPost, "/v1/bookings", `{"vehicle_id":10,"slot_id":5}`, "1", middleware.RoleCustomer, nil, h.Create)
    assert.Equal(t, http.StatusConflict, rec.Code)
    r := decode(t, rec)
    assert.Equal(t, lifecycle.CodeConflict, r.Code)
    assert.Nil(t, r.Data)
}

func TestBookingHandler_Steps(t *testing.T) {
    own := &model.Booking{ID: 7, UserID: 1, SlotID: 5, Status: model.BookingBooked}
    invalidState := &lifecycle.Error{Kind: lifecycle.KindInvalidTransition, Op: "check-out", Msg: "booking 7 is Booked"}
    compensated := &lifecycle.Error{Kind: lifecycle.KindCompensatedFailure, Op: "advance", Msg: "slot 5 update failed"}

    tests := []struct {
        name    string
        method  string
        err     error
        status  int
        outcome lifecycle.Outcome
    }{
        {"advance", "Advance", nil, http.StatusOK, lifecycle.OutcomeOK},
        {"check-in", "CheckIn", nil, http.StatusOK, lifecycle.OutcomeOK},
        {"check-out wrong phase", "CheckOut", invalidState, http.StatusUnprocessableEntity, lifecycle.OutcomeFailed},
        {"compensated", "Advance", compensated, http.StatusInternalServerError, lifecycle.OutcomeCompensated},
    }
    for _, tc := range tests {
        t.Run(tc.name, func(t *testing.T) {
            engine, reader := new(MockEngine), new(MockReader)
            h := NewBookingHandler(engine, reader)
            reader.On("GetByID", mock.Anything, uint64(7)).Return(own, nil).Once()
            var next *model.Booking
            if tc.err == nil {
                next = &model.Booking{ID: 7, Status: model.BookingCheckedIn}
            }
            engine.On(tc.method, mock.Anything, uint64(7)).Return(next, tc.err).Once()

            fn := map[string]echo.HandlerFunc{"Advance": h.Advance, "CheckIn": h.CheckIn, "CheckOut": h.CheckOut}[tc.method]
            rec := request(http.MethodPatch, "/v1/bookings/7", "", "1", middleware.RoleCustomer, map[string]string{"id": "7"}, fn)
            assert.Equal(t, tc.status, rec.Code)
            assert.Equal(t, tc.outcome, decode(t, rec).Outcome)
            engine.AssertExpectations(t)
        })
    }
}

func TestBookingHandler_ForeignBookingLooksMissing(t *testing.T) {
    engine, reader := new(MockEngine), new(MockReader)
    h := NewBookingHandler(engine, reader)
    reader.On("GetByID", mock.Anything, uint64(7)).Return(&model.Booking{ID: 7, UserID: 99}, nil)

    rec := request(http.MethodPatch, "/v1/bookings/7/advance", "", "1", middleware.RoleCustomer, map[string]string{"id": "7"}, h.Advance)
    assert.Equal(t, http.StatusNotFound, rec.Code)
    engine.AssertNotCalled(t, "Advance", mock.Anything, mock.Anything)

    engine.On("Advance", mock.Anything, uint64(7)).Return(&model.Booking{ID: 7}, nil).Once()
    rec = request(http.MethodPatch, "/v1/bookings/7/advance", "", "1", middleware.RoleAdmin, map[string]string{"id": "7"}, h.Advance)
    assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBookingHandler_Get(t *testing.T) {
    reader := new(MockReader)
    h := NewBookingHandler(new(MockEngine), reader)
    reader.On("GetByID", mock.Anything, uint64(7)).Return(&model.Booking{ID: 7, UserID: 1}, nil).Once()
    reader.On("GetByID", mock.Anything, uint64(8)).Return(nil, repository.ErrBookingNotFound).Once()
    reader.On("GetByID", mock.Anything, uint64(9)).Return(nil, errors.New("connection reset")).Once()

    get := func(id string) *httptest.ResponseRecorder {
        return request(http.MethodGet, "/v1/bookings/"+id, "", "1", middleware.RoleCustomer, map[string]string{"id": id}, h.Get)
    }
    assert.Equal(t, http.StatusOK, get("7").Code)
    assert.Equal(t, http.StatusNotFound, get("8").Code)
    rec := get("9")
    assert.Equal(t, http.StatusInternalServerError, rec.Code)
    assert.Equal(t, "storage failure", decode(t, rec).Message)
    assert.Equal(t, http.StatusBadRequest, get("abc").Code)
    assert.Equal(t, http.StatusUnauthorized,
        request(http.MethodGet, "/v1/bookings/7", "", "", "", map[string]string{"id": "7"}, h.Get).Code)
}

func slotEnums() validation.EnumTable {
    return validation.NewEnumTable(map[validation.Column][]string{
        validation.SlotStatus: {"Available", "Reserved", "Occupied"},
    })
}

func TestSlotHandler_List(t *testing.T) {
    slots := new(MockSlots)
    h := NewSlotHandler(slots, slotEnums())
    floor := 2
    slots.On("List", mock.Anything, model.SlotFilter{Floor: &floor, Statuses: []string{"available", "reserved"}, Limit: 10, Offset: 5}).
        Return([]model.Slot{
            {ID: 1, FloorNumber: 2, SlotNumber: 1, Status: model.SlotAvailable},
            {ID: 2, FloorNumber: 2, SlotNumber: 2, Status: model.SlotReserved},
        }, nil).Once()

    rec := request(http.MethodGet, "/v1/slots/2?status=Available,RESERVED&limit=10&offset=5", "", "1", middleware.RoleCustomer,
        map[string]string{"floor": "2"}, h.List)
    require.Equal(t, http.StatusOK, rec.Code)

    var body struct {
        Data []FloorSlots `json:"data"`
    }
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
    require.Len(t, body.Data, 1)
    assert.Equal(t, 2, body.Data[0].FloorNumber)
    assert.Len(t, body.Data[0].Slots, 2)
    slots.AssertExpectations(t)
}

func TestSlotHandler_ListRejects(t *testing.T) {
    tests := map[string]string{
        "unknown status":  "/v1/slots?status=parked",
        "zero limit":      "/v1/slots?limit=0",
        "text limit":      "/v1/slots?limit=ten",
        "negative offset": "/v1/slots?offset=-1",
    }
    for name, target := range tests {
        t.Run(name, func(t *testing.T) {
            slots := new(MockSlots)
            h := NewSlotHandler(slots, slotEnums())
            rec := request(http.MethodGet, target, "", "1", middleware.RoleCustomer, nil, h.List)
            assert.Equal(t, http.StatusBadRequest, rec.Code)
            slots.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
        })
    }

    rec := request(http.MethodGet, "/v1/slots/x", "", "1", middleware.RoleCustomer, map[string]string{"floor": "x"}, NewSlotHandler(new(MockSlots), slotEnums()).List)
    assert.Equal(t, http.StatusBadRequest, rec.Code)

    rec = request(http.MethodGet, "/v1/slots?status=parked", "", "1", middleware.RoleCustomer, nil, NewSlotHandler(new(MockSlots), slotEnums()).List)
    assert.Equal(t, "invalid status: parked", decode(t, rec).Message)
}

func TestSlotHandler_ListEmpty(t *testing.T) {
    slots := new(MockSlots)
    h := NewSlotHandler(slots, slotEnums())
    slots.On("List", mock.Anything, model.SlotFilter{Statuses: []string{}, Limit: defaultSlotLimit}).Return([]model.Slot{}, nil).Once()

    rec := request(http.MethodGet, "/v1/slots", "", "1", middleware.RoleCustomer, nil, h.List)
    assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGroupByFloor(t *testing.T) {
    got := groupByFloor([]model.Slot{
        {ID: 1, FloorNumber: 0}, {ID: 2, FloorNumber: 0}, {ID: 3, FloorNumber: 1}, {ID: 4, FloorNumber: 3},
    })
    require.Len(t, got, 3)
    assert.Equal(t, []int{0, 1, 3}, []int{got[0].FloorNumber, got[1].FloorNumber, got[2].FloorNumber})
    assert.Len(t, got[0].Slots, 2)
}

func TestAdminHandler_Sweep(t *testing.T) {
    sw := new(MockSweeper)
    h := NewAdminHandler(sw)
    sw.On("RunOnce", mock.Anything).Return(3, nil).Once()
    sw.On("RunOnce", mock.Anything).Return(0, sweeper.ErrBusy).Once()

    rec := request(http.MethodPost, "/v1/admin/sweep", "", "1", middleware.RoleAdmin, nil, h.Sweep)
    require.Equal(t, http.StatusOK, rec.Code)
    assert.JSONEq(t, `{"expired":3}`, string(mustJSON(t, decode(t, rec).Data)))

    rec = request(http.MethodPost, "/v1/admin/sweep", "", "1", middleware.RoleAdmin, nil, h.Sweep)
    assert.Equal(t, http.StatusConflict, rec.Code)
}

func mustJSON(t *testing.T, v any) []byte {
    t.Helper()
    b, err := json.Marshal(v)
    require.NoError(t, err)
    return b
}

type pinger struct{ err error }

func (p pinger) PingContext(context.Context) error { return p.err }

func TestHealth(t *testing.T) {
    rec := request(http.MethodGet, "/healthz", "", "", "", nil, Health(pinger{}))
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, "ok", rec.Body.String())

    rec = request(http.MethodGet, "/healthz", "", "", "", nil, Health(pinger{err: errors.New("down")}))
    assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
