package realtime

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pion/webrtc/v3"
)

// ICEConfigHandler serves the STUN/TURN server list clients need to build
// their peer connections. The server itself never negotiates media; it only
// relays the handshake.
func ICEConfigHandler(iceServers []webrtc.ICEServer) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"iceServers": iceServers})
	}
}
