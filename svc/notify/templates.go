package notify

const (
	inviteSubject = "{{sender_name}} invited you to {{site_name}}"
	inviteBody    = `<p>Hi,</p>
<p>{{sender_name}} has invited you to join their account on {{site_name}}.</p>
<p><a href="{{invite_link}}">Accept the invitation</a></p>
<p>If you were not expecting this invitation you can ignore this email.</p>`

	receiptSubject = "Payment receipt"
	receiptBody    = `<p>Hi {{user}},</p>
<p>We received your payment.</p>
<table>
<tr><td>Amount</td><td>{{payment_amount}}</td></tr>
<tr><td>Date</td><td>{{payment_date}}</td></tr>
<tr><td>Status</td><td>{{payment_status}}</td></tr>
<tr><td>Transaction</td><td>{{txn_id}}</td></tr>
</table>`

	auditSubject = "Payment notification received"
	auditBody    = `<table>
<tr><td>Verified</td><td>{{is_valid}}</td></tr>
<tr><td>Entitled</td><td>{{is_allowed}}</td></tr>
<tr><td>User</td><td>{{user}}</td></tr>
<tr><td>User email</td><td>{{user_email}}</td></tr>
<tr><td>Amount</td><td>{{payment_amount}}</td></tr>
<tr><td>Date</td><td>{{payment_date}}</td></tr>
<tr><td>Status</td><td>{{payment_status}}</td></tr>
<tr><td>Transaction</td><td>{{txn_id}}</td></tr>
<tr><td>Account</td><td>{{account_id}}</td></tr>
<tr><td>Plan</td><td>{{plan_id}}</td></tr>
</table>`
)
