package userservice

import "fmt"

// Vehicle модель электромобиля из UserService
type Vehicle struct {
	ID            int64   `json:"id"`
	UserID        int64   `json:"user_id"`
	Brand         string  `json:"brand"`
	Model         string  `json:"model"`
	LicensePlate  string  `json:"license_plate"`
	ConnectorType string  `json:"connector_type"` // CCS2, CHAdeMO, Type2
	BatteryKWh    float64 `json:"battery_kwh"`
	IsSelected    bool    `json:"is_selected"`
}

// Describe краткое описание для vehicle_info бронирования
func (v *Vehicle) Describe() string {
	if v.LicensePlate == "" {
		return fmt.Sprintf("%s %s", v.Brand, v.Model)
	}
	return fmt.Sprintf("%s %s (%s)", v.Brand, v.Model, v.LicensePlate)
}

// ErrorResponse модель ошибки от UserService
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
