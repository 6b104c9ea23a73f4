package bot

import (
	"fmt"
	"strings"

	"promobot/internal/config"
	"promobot/internal/model"
	"promobot/internal/source"
	"promobot/internal/weather"
)

// FormatStatus renders the pipeline overview for /promostatus.
func FormatStatus(state source.State, authPending, enabled bool, categories []config.CategorySettings, queueSizes map[string]int) string {
	var b strings.Builder
	b.WriteString("Promotion pipeline\n")

	switchState := "on"
	if !enabled {
		switchState = "off"
	}
	fmt.Fprintf(&b, "Posting: %s\n", switchState)
	fmt.Fprintf(&b, "Source session: %s\n", state)
	if authPending {
		b.WriteString("Waiting for a login code. Submit it with /authcode <code>.\n")
	}

	if len(categories) == 0 {
		b.WriteString("\nNo categories configured.")
		return b.String()
	}

	b.WriteString("\nQueues:\n")
	for _, c := range categories {
		fmt.Fprintf(&b, "%s %s: %d queued\n", c.Emoji, c.Name, queueSizes[string(c.Category)])
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatSchedule renders the per-category configuration for /promoconfig.
func FormatSchedule(categories []config.CategorySettings) string {
	if len(categories) == 0 {
		return "No categories configured. Set PROMO_<CATEGORY>_CHANNEL_IDS and PROMO_<CATEGORY>_SOURCES."
	}

	var b strings.Builder
	b.WriteString("Category schedule:\n")
	for _, c := range categories {
		fmt.Fprintf(&b, "\n%s %s (%s)\n", c.Emoji, c.Name, c.Category)
		fmt.Fprintf(&b, "   every %s, max age %s, up to %d per tick\n", c.Interval, c.MaxAge, c.MaxPerTick)
		fmt.Fprintf(&b, "   %d sources, %d channels\n", len(c.Sources), len(c.Destinations))
	}
	return strings.TrimRight(b.String(), "\n")
}

// searchPreviewLen caps each result line in /promosearch output.
const searchPreviewLen = 120

// FormatSearchResults renders a dry-run search result list.
func FormatSearchResults(categoryName string, items []model.ContentItem) string {
	if len(items) == 0 {
		return fmt.Sprintf("No matching promotions found for %s right now.", categoryName)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d matching promotions for %s:\n", len(items), categoryName)
	for _, item := range items {
		text := strings.ReplaceAll(item.Text, "\n", " ")
		if len(text) > searchPreviewLen {
			text = text[:searchPreviewLen] + "..."
		}
		media := ""
		if item.Media != nil {
			media = " [media]"
		}
		fmt.Fprintf(&b, "\n• %s%s\n  %s, %s\n", text, media, item.Source, item.PublishedAt.Format("2006-01-02 15:04 UTC"))
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatWeather renders current conditions for /weather.
func FormatWeather(c *weather.Current) string {
	return fmt.Sprintf("Weather in %s:\n%s, %.1f°C (feels like %.1f°C)\nHumidity %d%%, wind %.0f km/h",
		c.Location, c.Condition, c.TempC, c.FeelsC, c.Humidity, c.WindKph)
}
