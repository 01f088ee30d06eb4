package email

import (
	"fmt"
	stdhtml "html"
)

// DefaultLanguage is used when a request carries no or an unknown language tag.
const DefaultLanguage = "en"

// NormalizeLanguage maps a request language tag onto a supported language.
func NormalizeLanguage(lang string) string {
	switch lang {
	case "en", "nl":
		return lang
	default:
		return DefaultLanguage
	}
}

// MagicLinkEmail renders the branded sign-in email around the rewritten link.
func MagicLinkEmail(lang, link string) (subject, html string) {
	switch NormalizeLanguage(lang) {
	case "nl":
		subject = "Jouw inloglink voor Runnmate"
		html = fmt.Sprintf(`<h2>Inloggen bij Runnmate</h2>
<p>Klik op de knop om in te loggen. De link is eenmalig geldig.</p>
<p><a href="%s">Inloggen</a></p>
<p>Heb je deze email niet aangevraagd? Dan kun je hem negeren.</p>`, link)
	default:
		subject = "Your Runnmate sign-in link"
		html = fmt.Sprintf(`<h2>Sign in to Runnmate</h2>
<p>Click the button to sign in. The link works once.</p>
<p><a href="%s">Sign in</a></p>
<p>If you didn't request this email you can ignore it.</p>`, link)
	}
	return subject, html
}

// OfferEmail notifies a seller that a buyer made an offer on their listing.
// Buyer-supplied values are escaped before they land in the HTML body.
func OfferEmail(lang, listingTitle, buyerName string, priceEUR int, message string) (subject, html string) {
	title := stdhtml.EscapeString(listingTitle)
	buyer := stdhtml.EscapeString(buyerName)
	msg := stdhtml.EscapeString(message)
	switch NormalizeLanguage(lang) {
	case "nl":
		subject = fmt.Sprintf("Nieuw bod op %s", listingTitle)
		html = fmt.Sprintf(`<h2>Je hebt een bod ontvangen</h2>
<p><strong>%s</strong> biedt <strong>€%d</strong> voor je schoenen "%s".</p>
<p>%s</p>
<p>Antwoord op deze email om te reageren.</p>`, buyer, priceEUR, title, msg)
	default:
		subject = fmt.Sprintf("New offer on %s", listingTitle)
		html = fmt.Sprintf(`<h2>You received an offer</h2>
<p><strong>%s</strong> offers <strong>€%d</strong> for your shoes "%s".</p>
<p>%s</p>
<p>Reply to this email to respond.</p>`, buyer, priceEUR, title, msg)
	}
	return subject, html
}

// ContactEmail relays a contact-form submission to the admin inbox.
func ContactEmail(name, fromEmail, message string) (subject, html string) {
	subject = fmt.Sprintf("Contact form: %s", name)
	html = fmt.Sprintf(`<h2>Contact form submission</h2>
<p><strong>From:</strong> %s (%s)</p>
<p>%s</p>`, stdhtml.EscapeString(name), stdhtml.EscapeString(fromEmail), stdhtml.EscapeString(message))
	return subject, html
}

// VerificationEmail confirms a completed Strava verification.
func VerificationEmail(lang, athleteName string, totalKm, activities int) (subject, html string) {
	athleteName = stdhtml.EscapeString(athleteName)
	switch NormalizeLanguage(lang) {
	case "nl":
		subject = "Je Strava-verificatie is gelukt"
		html = fmt.Sprintf(`<h2>Verificatie gelukt</h2>
<p>Hoi %s, je Strava-account is gekoppeld: <strong>%d km</strong> over %d activiteiten.</p>`, athleteName, totalKm, activities)
	default:
		subject = "Your Strava verification succeeded"
		html = fmt.Sprintf(`<h2>Verification complete</h2>
<p>Hi %s, your Strava account is connected: <strong>%d km</strong> across %d activities.</p>`, athleteName, totalKm, activities)
	}
	return subject, html
}

// LotteryEmail confirms a launch-lottery signup.
func LotteryEmail(lang string) (subject, html string) {
	switch NormalizeLanguage(lang) {
	case "nl":
		subject = "Je doet mee met de Runnmate lancering"
		html = `<h2>Je staat op de lijst</h2>
<p>We laten het je weten zodra Runnmate live gaat.</p>`
	default:
		subject = "You're in the Runnmate launch lottery"
		html = `<h2>You're on the list</h2>
<p>We'll let you know as soon as Runnmate goes live.</p>`
	}
	return subject, html
}
