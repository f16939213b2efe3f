package response

import "github.com/gin-gonic/gin"

func RespondJSON(c *gin.Context, status string, code int, message string, data interface{}, errors interface{}) {
	c.JSON(code, StandardApiResponse{
		Status:     status,
		StatusCode: code,
		Message:    message,
		Data:       data,
		Errors:     errors,
	})
}

// Abort writes an error envelope and stops the handler chain
func Abort(c *gin.Context, code int, message string, errors interface{}) {
	c.AbortWithStatusJSON(code, StandardApiResponse{
		Status:     StatusError,
		StatusCode: code,
		Message:    message,
		Errors:     errors,
	})
}
