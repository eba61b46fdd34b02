// Package compose builds reminder message text per reminder kind.
package compose

import "fmt"

type Input struct {
	Kind        string
	ClientName  string
	ServiceName string
	Date        string
	StartTime   string
	ClinicName  string
}

type Message struct {
	Subject string
	Body    string
}

func Build(in Input) Message {
	service := in.ServiceName
	if service == "" {
		service = "your appointment"
	}
	when := in.Date
	if in.StartTime != "" {
		when = in.Date + " at " + in.StartTime
	}
	greeting := "Hello"
	if in.ClientName != "" {
		greeting = "Hello " + in.ClientName
	}

	var msg Message
	switch in.Kind {
	case "confirmation":
		msg.Subject = "Please confirm your appointment"
		msg.Body = fmt.Sprintf("%s, please confirm %s on %s. Reply or call us to confirm.", greeting, service, when)
	case "reminder_2h":
		msg.Subject = "Your appointment is coming up"
		msg.Body = fmt.Sprintf("%s, a reminder that %s starts soon: %s.", greeting, service, when)
	default:
		msg.Subject = "Appointment reminder"
		msg.Body = fmt.Sprintf("%s, a reminder of %s on %s.", greeting, service, when)
	}

	if in.ClinicName != "" {
		msg.Body = fmt.Sprintf("[%s] %s", in.ClinicName, msg.Body)
	}
	return msg
}
