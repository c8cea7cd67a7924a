package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestServiceTypeLabel(t *testing.T) {
	tests := []struct {
		serviceType ServiceType
		label       string
	}{
		{ServiceConsultation, "Консультация дизайнера"},
		{ServiceDesignProject, "Дизайн-проект интерьера"},
		{ServiceFurnitureProject, "Проект мебели"},
		{ServiceAssembly, "Сборка мебели"},
		{ServiceMeasurement, "Замер помещения"},
	}

	for _, tt := range tests {
		t.Run(string(tt.serviceType), func(t *testing.T) {
			assert.True(t, tt.serviceType.Valid())
			assert.Equal(t, tt.label, tt.serviceType.Label())
		})
	}

	assert.False(t, ServiceType("repair").Valid())
	assert.Len(t, ServiceTypes(), len(tests))
}

func TestPasswordResetTokenExpired(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	p := &PasswordResetToken{Email: "a@b.c", CreatedAt: created}

	assert.False(t, p.Expired(created.Add(59*time.Minute), time.Hour))
	assert.True(t, p.Expired(created.Add(time.Hour), time.Hour))
}
