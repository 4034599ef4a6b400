package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/media-transcription/internal/queue"
)

// JobQueue is the part of the worker pool the handlers use
type JobQueue interface {
	EnqueueJob(job *queue.Job) error
	TrackPending(job *queue.Job)
	GetJob(id string) (queue.JobStatus, bool)
}

func errorJSON(c *fiber.Ctx, status int, message, code string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": message,
		"code":  code,
	})
}

// enqueueError maps a rejected enqueue to a response
func enqueueError(c *fiber.Ctx, err error) error {
	if errors.Is(err, queue.ErrQueueFull) {
		return errorJSON(c, fiber.StatusServiceUnavailable, "Too many jobs queued, try again later", "ERR_QUEUE_FULL")
	}
	return errorJSON(c, fiber.StatusServiceUnavailable, "Server is shutting down", "ERR_UNAVAILABLE")
}
