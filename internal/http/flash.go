package httpapi

import "github.com/gin-gonic/gin"

// Одноразовое уведомление в куке: ставится перед редиректом,
// читается и гасится при ближайшем рендере.

const flashCookie = "flash"

func setFlash(c *gin.Context, msg string) {
	c.SetCookie(flashCookie, msg, 0, "/", "", false, true)
}

func takeFlash(c *gin.Context) string {
	msg, err := c.Cookie(flashCookie)
	if err != nil || msg == "" {
		return ""
	}
	c.SetCookie(flashCookie, "", -1, "/", "", false, true)
	return msg
}
