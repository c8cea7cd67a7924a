package models

import "time"

// ServiceType identifies what a visitor asks for on the site.
type ServiceType string

const (
	ServiceConsultation     ServiceType = "consultation"
	ServiceDesignProject    ServiceType = "design-project"
	ServiceFurnitureProject ServiceType = "furniture-project"
	ServiceAssembly         ServiceType = "assembly"
	ServiceMeasurement      ServiceType = "measurement"
)

var serviceLabels = map[ServiceType]string{
	ServiceConsultation:     "Консультация дизайнера",
	ServiceDesignProject:    "Дизайн-проект интерьера",
	ServiceFurnitureProject: "Проект мебели",
	ServiceAssembly:         "Сборка мебели",
	ServiceMeasurement:      "Замер помещения",
}

// ServiceTypes lists the accepted service types in display order.
func ServiceTypes() []ServiceType {
	return []ServiceType{
		ServiceConsultation,
		ServiceDesignProject,
		ServiceFurnitureProject,
		ServiceAssembly,
		ServiceMeasurement,
	}
}

func (s ServiceType) Valid() bool {
	_, ok := serviceLabels[s]
	return ok
}

// Label returns the human-readable name, or the raw value for unknown types.
func (s ServiceType) Label() string {
	if l, ok := serviceLabels[s]; ok {
		return l
	}
	return string(s)
}

// ServiceRequest is a validated submission from the site's request form.
type ServiceRequest struct {
	ServiceType ServiceType
	Name        string
	Phone       string
	Message     *string
	SourceURL   *string
	SubmittedAt time.Time
}
