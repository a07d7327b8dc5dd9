package models

// Requests for prediction HTTP endpoints.

type PersonRequest struct {
	PersonID int64 `query:"person_id" json:"person_id" validate:"required,gt=0"`
}

type ForecastAllRequest struct {
	PersonID int64 `query:"person_id" json:"person_id" validate:"required,gt=0"`
	Month    int   `query:"month" json:"month" validate:"omitempty,gte=1,lte=12"`
	Year     int   `query:"year" json:"year" validate:"omitempty,gte=1970,lte=2200"`
}

type ForecastRequest struct {
	PersonID int64  `query:"person_id" json:"person_id" validate:"required,gt=0"`
	Category string `query:"category" json:"category" validate:"required"`
	Months   int    `query:"months" json:"months" default:"3" validate:"gte=1,lte=24"`
}

type PredictMonthRequest struct {
	PersonID int64  `query:"person_id" json:"person_id" validate:"required,gt=0"`
	Category string `query:"category" json:"category" validate:"required"`
	Month    int    `query:"month" json:"month" validate:"required,gte=1,lte=12"`
}

type CategoryStatsRequest struct {
	PersonID int64  `query:"person_id" json:"person_id" validate:"required,gt=0"`
	Category string `param:"category" json:"category" validate:"required"`
}

type RetrainRequest struct {
	PersonID int64 `query:"person_id" json:"person_id" validate:"required,gt=0"`
	Async    bool  `query:"async" json:"async"`
}
