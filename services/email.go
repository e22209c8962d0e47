package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/veerly/veerly-api/models"
)

type EmailService struct {
	apiKey      string
	fromEmail   string
	frontendURL string
}

func NewEmailService(apiKey, fromEmail, frontendURL string) *EmailService {
	return &EmailService{
		apiKey:      apiKey,
		fromEmail:   fromEmail,
		frontendURL: frontendURL,
	}
}

// SendInvitation mails a group invitation link. Failures are reported to the
// caller, who downgrades them to a warning rather than failing the request.
func (s *EmailService) SendInvitation(to, inviterName, groupName, token string) error {
	invitationURL := fmt.Sprintf("%s/groups?invitation=%s", s.frontendURL, token)

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <style>
        body { font-family: sans-serif; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background: #1f2937; color: white; padding: 30px; border-radius: 10px 10px 0 0; }
        .content { background: #f8f9fa; padding: 30px; }
        .button { display: inline-block; background: #2563eb; color: white; padding: 15px 30px; text-decoration: none; border-radius: 8px; margin: 20px 0; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>🚐 Invitation Veerly</h1>
        </div>
        <div class="content">
            <p>Bonjour,</p>
            <p><strong>%s</strong> vous invite à rejoindre le groupe de chauffeurs <strong>"%s"</strong>.</p>
            <a href="%s" class="button">Voir l'invitation</a>
        </div>
    </div>
</body>
</html>
	`, inviterName, groupName, invitationURL)

	subject := fmt.Sprintf("%s vous invite à rejoindre %s", inviterName, groupName)
	return s.send(to, subject, htmlBody)
}

// SendReceipt mails the booking receipt for a course to the driver.
func (s *EmailService) SendReceipt(to string, receipt models.Receipt) error {
	price := "—"
	if receipt.Price != nil {
		price = *receipt.Price + " €"
	}

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <style>
        body { font-family: sans-serif; color: #1f2937; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background: #1f2937; color: white; padding: 30px; border-radius: 10px 10px 0 0; }
        .content { background: #f8f9fa; padding: 30px; }
        .row { margin: 8px 0; }
        .total { font-size: 20px; font-weight: bold; margin-top: 20px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>🚐 Bon de réservation</h1>
        </div>
        <div class="content">
            <div class="row"><strong>Réservation :</strong> #%s</div>
            <div class="row"><strong>Conducteur :</strong> %s %s</div>
            <div class="row"><strong>Passager :</strong> %s (%s)</div>
            <div class="row"><strong>Prise en charge :</strong> %s à %s, %s</div>
            <div class="row"><strong>Destination :</strong> %s</div>
            <div class="row"><strong>Véhicule :</strong> %s — %d personne(s), %d bagage(s)</div>
            <div class="total">Tarif : %s</div>
        </div>
    </div>
</body>
</html>
	`, receipt.ID,
		receipt.DriverFirstName, receipt.DriverLastName,
		receipt.ClientName, receipt.ClientNumber,
		receipt.Date, receipt.Schedule, receipt.DepartureLocation,
		receipt.ArrivalLocation,
		receipt.VehicleType, receipt.NumberOfPeople, receipt.NumberOfBags,
		price)

	subject := fmt.Sprintf("Bon de réservation #%s", receipt.ID)
	return s.send(to, subject, htmlBody)
}

func (s *EmailService) send(to, subject, htmlBody string) error {
	if s.apiKey == "" {
		return fmt.Errorf("RESEND_API_KEY not configured")
	}

	payload := map[string]interface{}{
		"from":    fmt.Sprintf("Veerly <%s>", s.fromEmail),
		"to":      []string{to},
		"subject": subject,
		"html":    htmlBody,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequest("POST", "https://api.resend.com/emails", bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", s.apiKey))
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to send email: status %d", resp.StatusCode)
	}

	return nil
}
