package api

import (
	"net/http"

	"github.com/novostroy/novostroy-api/internal/models"
	"github.com/novostroy/novostroy-api/internal/validation"
)

func serviceTypeValues() []string {
	types := models.ServiceTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

func (api *Api) ServiceRequestHandler(w http.ResponseWriter, r *http.Request) {
	in, err := readInput(w, r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, msgInvalidData, bodyErrors())
		return
	}

	serviceType := in.get("service_type")
	api.log.Info("service request notification received",
		"service_type", serviceType, "name", in.get("name"), "ip", api.clientIP(r))

	v := validation.New()
	in.requireStrings(v, "service_type", "name", "phone", "message", "source_url")
	if v.Required("service_type", serviceType) {
		v.In("service_type", serviceType, serviceTypeValues()...)
	}
	if v.Required("name", in.get("name")) {
		v.Max("name", in.get("name"), 255)
	}
	if v.Required("phone", in.get("phone")) {
		v.Max("phone", in.get("phone"), 50)
	}
	v.Max("message", in.get("message"), 2000)
	v.Max("source_url", in.get("source_url"), 500)
	if !v.Valid() {
		api.log.Warn("service request validation failed", "service_type", serviceType, "errors", v.Errors())
		writeError(w, http.StatusUnprocessableEntity, msgInvalidData, v.Errors())
		return
	}

	req := models.ServiceRequest{
		ServiceType: models.ServiceType(serviceType),
		Name:        in.get("name"),
		Phone:       in.get("phone"),
		Message:     in.optional("message"),
		SourceURL:   in.optional("source_url"),
	}
	if err := api.notifier.Send(r.Context(), req); err != nil {
		api.log.Error("failed to send service request notification",
			"service_type", serviceType, "error", err)
		writeError(w, http.StatusInternalServerError, msgNotificationFailed, general(msgNotificationError))
		return
	}

	api.log.Info("service request notification sent", "service_type", serviceType)
	writeMessage(w, http.StatusOK, msgNotificationSent)
}
