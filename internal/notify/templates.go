package notify

const htmlTemplate = `<!DOCTYPE html>
<html>
<head>
<style>
  body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; background-color: #f4f4f4; margin: 0; padding: 0; }
  .container { max-width: 600px; margin: 40px auto; background-color: #ffffff; border-radius: 10px; overflow: hidden; }
  .header { background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); color: white; padding: 30px; text-align: center; }
  .content { padding: 40px 30px; }
  .otp-box { background-color: #f8f9fa; border: 2px dashed #667eea; border-radius: 8px; padding: 20px; text-align: center; margin: 30px 0; }
  .otp-code { font-size: 36px; font-weight: bold; color: #667eea; letter-spacing: 8px; font-family: 'Courier New', monospace; }
  .warning { background-color: #fff3cd; border-left: 4px solid #ffc107; padding: 15px; margin: 20px 0; border-radius: 4px; }
  .footer { background-color: #f8f9fa; padding: 20px; text-align: center; color: #6c757d; font-size: 14px; }
</style>
</head>
<body>
<div class="container">
  <div class="header"><h1>{{.AppName}}</h1></div>
  <div class="content">
    <h2>Email Verification Code</h2>
    <p>Hello,</p>
    <p>You requested to {{.Action}}. Please use the following One-Time Password (OTP) to proceed:</p>
    <div class="otp-box"><div class="otp-code">{{.Code}}</div></div>
    <p><strong>This code will expire in {{.ExpiryMinutes}} minutes.</strong></p>
    <div class="warning">
      <strong>Security Notice:</strong>
      <ul>
        <li>Never share this code with anyone</li>
        <li>Our team will never ask for your OTP</li>
        <li>If you didn't request this, please ignore this email</li>
      </ul>
    </div>
    <p>Best regards,<br><strong>{{.AppName}} Team</strong></p>
  </div>
  <div class="footer">
    <p>This is an automated message, please do not reply to this email.</p>
  </div>
</div>
</body>
</html>
`

const textTemplate = `{{.AppName}} - Email Verification

Hello,

You requested to {{.Action}}. Please use the following One-Time Password (OTP):

{{.Code}}

This code will expire in {{.ExpiryMinutes}} minutes.

Security Notice:
- Never share this code with anyone
- Our team will never ask for your OTP
- If you didn't request this, please ignore this email

Best regards,
{{.AppName}} Team
`
