// Package api provides HTTP handlers for bot process control.
package api

// CommandRequest forwards one line of input to the running bot.
type CommandRequest struct {
	Command string `json:"command" binding:"required"`
}

// StatusBody is the uniform control-operation response shape.
type StatusBody struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func success(message string) StatusBody {
	return StatusBody{Status: "success", Message: message}
}

func info(message string) StatusBody {
	return StatusBody{Status: "info", Message: message}
}

func failure(message string) StatusBody {
	return StatusBody{Status: "error", Message: message}
}
