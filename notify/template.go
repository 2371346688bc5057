package notify

import (
	"fmt"
	"html/template"
	"strings"
	"time"
)

type GameKeyEmailParams struct {
	UserName     string
	GameTitle    string
	GameKey      string
	Price        float64
	PurchaseDate time.Time
}

var gameKeyHTML = template.Must(template.New("gamekey").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>Your game key - SMILESHOP</title>
</head>
<body style="margin: 0; padding: 0; font-family: Arial, sans-serif; background-color: #f5f5f5;">
  <table role="presentation" style="max-width: 600px; margin: 0 auto; background-color: #ffffff; border-radius: 12px;">
    <tr>
      <td style="padding: 40px 40px 30px; text-align: center; background: #667eea; border-radius: 12px 12px 0 0;">
        <h1 style="margin: 0; color: #ffffff; font-size: 28px;">SMILESHOP</h1>
        <p style="margin: 10px 0 0; color: #ffffff; font-size: 16px;">Thank you for your purchase!</p>
      </td>
    </tr>
    <tr>
      <td style="padding: 40px;">
        <p style="margin: 0 0 20px; color: #333333; font-size: 16px;">Hello, <strong>{{.UserName}}</strong>!</p>
        <p style="margin: 0 0 30px; color: #666666; font-size: 15px;">Your order has been processed. Your activation key is below.</p>
        <div style="background-color: #f8f9fa; border-radius: 8px; padding: 24px; margin-bottom: 30px;">
          <h2 style="margin: 0 0 16px; color: #333333; font-size: 20px;">{{.GameTitle}}</h2>
          <p style="margin: 0; color: #666666; font-size: 14px;">Purchase date: {{.FormattedDate}}</p>
          <p style="margin: 8px 0 0; color: #666666; font-size: 14px;">Price: {{.FormattedPrice}} &#8381;</p>
        </div>
        <div style="background-color: #e8f0fe; border: 2px dashed #667eea; border-radius: 8px; padding: 20px; text-align: center; margin-bottom: 30px;">
          <p style="margin: 0 0 8px; color: #666666; font-size: 13px;">Your activation key</p>
          <p style="margin: 0; color: #1a1a1a; font-size: 22px; font-weight: 700; letter-spacing: 2px; font-family: monospace;">{{.GameKey}}</p>
        </div>
        <p style="margin: 0 0 8px; color: #333333; font-size: 15px; font-weight: 600;">Activation instructions:</p>
        <ol style="margin: 0 0 30px; padding-left: 20px; color: #666666; font-size: 14px;">
          <li>Open your Steam/Epic Games/Origin client</li>
          <li>Go to "Activate a product"</li>
          <li>Enter your key</li>
          <li>Follow the on-screen instructions</li>
        </ol>
        <p style="margin: 0; color: #999999; font-size: 13px;">Keep this email: the key can be used only once.</p>
      </td>
    </tr>
  </table>
</body>
</html>
`))

type gameKeyTemplateData struct {
	GameKeyEmailParams
	FormattedDate  string
	FormattedPrice string
}

// RenderGameKeyEmail produces the HTML and plain-text bodies for the
// purchased-key notification.
func RenderGameKeyEmail(params GameKeyEmailParams) (htmlBody, textBody string, err error) {
	data := gameKeyTemplateData{
		GameKeyEmailParams: params,
		FormattedDate:      params.PurchaseDate.Format("02.01.2006 15:04"),
		FormattedPrice:     fmt.Sprintf("%.2f", params.Price),
	}

	var b strings.Builder
	if err := gameKeyHTML.Execute(&b, data); err != nil {
		return "", "", err
	}

	text := fmt.Sprintf(`Hello, %s!

Thank you for your purchase at SMILESHOP!

Your purchase details:
Game: %s
Activation key: %s
Price: %s RUB
Purchase date: %s

Activation instructions:
1. Open your Steam/Epic Games/Origin client
2. Go to "Activate a product"
3. Enter your key: %s
4. Follow the on-screen instructions

Keep this email: the activation key can be used only once.

SMILESHOP team`,
		params.UserName,
		params.GameTitle,
		params.GameKey,
		data.FormattedPrice,
		data.FormattedDate,
		params.GameKey,
	)

	return b.String(), text, nil
}

// SubjectForGame is the notification subject line for a purchased title.
func SubjectForGame(title string) string {
	return fmt.Sprintf("Your key for %s - SMILESHOP", title)
}
