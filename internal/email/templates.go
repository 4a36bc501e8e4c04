package email

import "fmt"

// TestEmailSubject is the subject of the SMTP connectivity check
const TestEmailSubject = "envoi mail J-4 - Test de Connexion"

// TestEmailHTML returns the HTML body of the SMTP connectivity check.
func TestEmailHTML(appName string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="fr">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Test de connexion</title>
</head>
<body style="margin:0;padding:0;font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,Helvetica,Arial,sans-serif;background-color:#f4f5f7;">
<table width="100%%" cellpadding="0" cellspacing="0" style="background-color:#f4f5f7;padding:40px 0;">
<tr><td align="center">
<table width="480" cellpadding="0" cellspacing="0" style="background-color:#ffffff;border-radius:8px;overflow:hidden;">
  <tr><td style="padding:32px 40px;">
    <p style="margin:0;font-size:15px;color:#1a1a2e;line-height:1.6;"><b>Votre connexion SMTP est configurée correctement.</b></p>
  </td></tr>
  <tr><td style="padding:16px 40px;background-color:#f9f9fc;border-top:1px solid #eeeef2;">
    <p style="margin:0;font-size:12px;color:#aaaabc;text-align:center;">%s &mdash; message automatique, merci de ne pas répondre.</p>
  </td></tr>
</table>
</td></tr>
</table>
</body>
</html>`, appName)
}

// TestEmailText returns the plain-text body of the SMTP connectivity check.
func TestEmailText(appName string) string {
	return fmt.Sprintf("Votre connexion SMTP est configurée correctement.\n\n- %s", appName)
}
