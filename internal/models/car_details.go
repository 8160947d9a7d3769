package models

// CarDetails extends a CAR post. It shares the post's primary key.
type CarDetails struct {
	PostID       int64   `gorm:"primaryKey;autoIncrement:false" json:"post_id"`
	VIN          *string `gorm:"column:vin;index" json:"vin,omitempty"`
	Make         *string `gorm:"index" json:"make,omitempty"`
	Model        *string `json:"model,omitempty"`
	Year         *int    `json:"year,omitempty"`
	Mileage      *int    `json:"mileage,omitempty"`
	FuelType     *string `json:"fuel_type,omitempty"`
	Transmission *string `json:"transmission,omitempty"`
	EngineSize   *string `json:"engine_size,omitempty"`
	Color        *string `json:"color,omitempty"`
	Condition    *string `json:"condition,omitempty"`
}

func (CarDetails) TableName() string { return "car_details" }

// PostWithDetails pairs a post with its optional car details.
type PostWithDetails struct {
	Post
	CarDetails *CarDetails `json:"car_details,omitempty"`
}
