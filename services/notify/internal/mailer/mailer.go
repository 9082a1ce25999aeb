package mailer

import (
	"context"
	"fmt"
	"html"
	"time"

	"github.com/diagnosis/verifywoo/pkg/events"
)

type Service interface {
	Send(ctx context.Context, msg Message) error
}

type Message struct {
	To      string
	ToName  string
	Subject string
	Text    string
	HTML    string
}

const siteName = "VerifyWoo"

// NewCustomerMessage tells the shop admin a visitor was registered by phone.
func NewCustomerMessage(to string, evt events.AccountRegisteredEvent) Message {
	subject := fmt.Sprintf("[%s] New customer registered by phone", siteName)
	when := evt.RegisteredAt.Format(time.RFC1123)

	text := fmt.Sprintf("A new customer account was created after phone verification.\n\n"+
		"Login: %s\nPhone: %s\nRole: %s\nAccount ID: %d\nRegistered: %s\n",
		evt.Login, evt.Phone, evt.Role, evt.AccountID, when)

	body := fmt.Sprintf(`
		<h2>New customer registered</h2>
		<p>A new customer account was created after phone verification.</p>
		<table>
			<tr><td>Login</td><td><strong>%s</strong></td></tr>
			<tr><td>Phone</td><td>%s</td></tr>
			<tr><td>Role</td><td>%s</td></tr>
			<tr><td>Account ID</td><td>%d</td></tr>
			<tr><td>Registered</td><td>%s</td></tr>
		</table>
	`, html.EscapeString(evt.Login), html.EscapeString(evt.Phone), html.EscapeString(evt.Role), evt.AccountID, when)

	return Message{To: to, Subject: subject, Text: text, HTML: body}
}

// SMSFailureMessage alerts the shop admin that the SMS gateway refused a code.
func SMSFailureMessage(to string, evt events.SMSFailedEvent) Message {
	subject := fmt.Sprintf("[%s] SMS gateway %s failed to deliver a login code", siteName, evt.Driver)
	when := evt.FailedAt.Format(time.RFC1123)

	text := fmt.Sprintf("The %s gateway did not accept a login code (%s).\n\n"+
		"Phone: %s\nTime: %s\n\nCheck the API key, sender number and account balance in the gateway settings.\n",
		evt.Driver, evt.Method, evt.Phone, when)

	body := fmt.Sprintf(`
		<h2>SMS delivery failed</h2>
		<p>The <strong>%s</strong> gateway did not accept a login code (%s).</p>
		<p>Phone: %s<br>Time: %s</p>
		<p>Check the API key, sender number and account balance in the gateway settings.</p>
	`, html.EscapeString(evt.Driver), html.EscapeString(evt.Method), html.EscapeString(evt.Phone), when)

	return Message{To: to, Subject: subject, Text: text, HTML: body}
}
