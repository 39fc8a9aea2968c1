package markers

import "github.com/barbizo19/mapty/internal/domain"

// Popup is the text bound to a marker and the CSS class styling it.
type Popup struct {
	Content   string `json:"content"`
	ClassName string `json:"class_name"`
}

// PopupFor renders the popup shown above a workout's marker.
func PopupFor(w domain.Workout) Popup {
	icon := "🚴‍♂️"
	if w.Kind() == domain.KindRunning {
		icon = "🏃‍♂️"
	}
	return Popup{
		Content:   icon + " " + w.Base().Description,
		ClassName: string(w.Kind()) + "-popup",
	}
}
