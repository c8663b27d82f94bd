package mailer

import (
	htmltemplate "html/template"
	texttemplate "text/template"
)

const htmlHead = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<style>
body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
.container { max-width: 600px; margin: 0 auto; padding: 20px; }
.header { background: #667eea; color: white; padding: 20px; border-radius: 8px 8px 0 0; }
.content { background: #f9f9f9; padding: 20px; border-radius: 0 0 8px 8px; }
.box { background: white; padding: 15px; border-radius: 4px; border-left: 4px solid #667eea; margin-bottom: 15px; white-space: pre-wrap; }
.meta { font-size: 12px; color: #666; margin-top: 20px; padding-top: 20px; border-top: 1px solid #ddd; }
</style>
</head>
<body>
<div class="container">`

const htmlFoot = `</div>
</body>
</html>`

var notificationText = texttemplate.Must(texttemplate.New("notification.txt").Parse(`
New Contact Form Submission

Name: {{.Contact.Name}}
Email: {{.Contact.Email}}
{{with .Contact.Phone}}Phone: {{.}}
{{end}}Subject: {{.Contact.Subject}}
Message:
{{.Contact.Message}}

Submission Details:
ID: {{.Contact.ID}}
Time: {{.Sent}}
IP Address: {{.Contact.IPAddress}}
User Agent: {{.Contact.UserAgent}}
Referrer: {{.Contact.Referrer}}
`))

var notificationHTML = htmltemplate.Must(htmltemplate.New("notification.html").Parse(htmlHead + `
<div class="header"><h1>New Contact Form Submission</h1></div>
<div class="content">
<p><strong>Name:</strong> {{.Contact.Name}}</p>
<p><strong>Email:</strong> <a href="mailto:{{.Contact.Email}}">{{.Contact.Email}}</a></p>
{{with .Contact.Phone}}<p><strong>Phone:</strong> {{.}}</p>{{end}}
<p><strong>Subject:</strong> {{.Contact.Subject}}</p>
<div class="box">{{.Contact.Message}}</div>
<div class="meta">
ID: {{.Contact.ID}}<br>
Time: {{.Sent}}<br>
IP Address: {{.Contact.IPAddress}}<br>
User Agent: {{.Contact.UserAgent}}<br>
Referrer: {{.Contact.Referrer}}
</div>
</div>` + htmlFoot))

var autoReplyText = texttemplate.Must(texttemplate.New("autoreply.txt").Parse(`
Hi {{.Contact.Name}},

Thank you for contacting me through my website. I have received your message and will get back to you as soon as possible.

Your message:
"{{.Contact.Message}}"

Best regards,
{{.Owner}}
{{with .Site}}
---
This is an automated response from {{.}}{{end}}
`))

var autoReplyHTML = htmltemplate.Must(htmltemplate.New("autoreply.html").Parse(htmlHead + `
<div class="header"><h1>Thank you for reaching out!</h1></div>
<div class="content">
<p>Hi {{.Contact.Name}},</p>
<p>Thank you for contacting me through my website. I have received your message and will get back to you as soon as possible.</p>
<p>Your message:</p>
<div class="box">{{.Contact.Message}}</div>
<p>Best regards,<br>{{.Owner}}</p>
{{with .Site}}<div class="meta">This is an automated response from {{.}}</div>{{end}}
</div>` + htmlFoot))

var replyText = texttemplate.Must(texttemplate.New("reply.txt").Parse(`
{{.Reply}}

---

Your original message:
From: {{.Contact.Name}} <{{.Contact.Email}}>
Subject: {{.Contact.Subject}}
Date: {{.Sent}}

{{.Contact.Message}}

---

Best regards,
{{.Owner}}{{with .Title}}
{{.}}{{end}}{{with .SiteURL}}
Website: {{.}}{{end}}
`))

var replyHTML = htmltemplate.Must(htmltemplate.New("reply.html").Parse(htmlHead + `
<div class="header"><h1>Reply to Your Message</h1></div>
<div class="content">
<div class="box">{{.Reply}}</div>
<div class="box">
<strong>Your original message:</strong><br>
<strong>From:</strong> {{.Contact.Name}} &lt;{{.Contact.Email}}&gt;<br>
<strong>Subject:</strong> {{.Contact.Subject}}<br>
<strong>Date:</strong> {{.Sent}}<br><br>
{{.Contact.Message}}
</div>
<p>Best regards,<br><strong>{{.Owner}}</strong>{{with .Title}}<br>{{.}}{{end}}{{with .SiteURL}}<br><a href="{{.}}">{{$.Site}}</a>{{end}}</p>
</div>` + htmlFoot))
