package bot

import (
	"encoding/json"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// WebhookPath — путь, на который Telegram присылает апдейты.
const WebhookPath = "/bot/webhook"

// Webhook принимает апдейты по HTTP и кладёт их в очередь диспетчера.
// Обработка идёт в Run, поэтому порядок сообщений сохраняется и в режиме вебхука.
func Webhook(updates chan<- tgbotapi.Update) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var update tgbotapi.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		select {
		case updates <- update:
			w.WriteHeader(http.StatusOK)
		case <-r.Context().Done():
			http.Error(w, "dispatcher busy", http.StatusServiceUnavailable)
		}
	}
}
