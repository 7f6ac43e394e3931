// Package cli реализует команды housekeeper.
//
// # Команды
//
//	serve              — запустить процесс (poller'ы, выборы лидера, admin HTTP)
//	migrate up|down|status — миграции БД через goose
//	pollers list|show|tick — admin API работающего процесса
//
// # Client
//
// HTTP-клиент для admin API. Команды pollers работают только через HTTP
// и не импортируют internal/api: типы ответов продублированы.
//
//	client := cli.NewClient("http://localhost:8085")
//	pollers, err := client.ListPollers()
//
// # Output
//
// Таблицы (text/tabwriter) по умолчанию, JSON с флагом --json.
// Данные выводятся в stdout, сообщения — в stderr:
//
//	housekeeper pollers list --json | jq .
//
// Команды-группы принимают clientFn и outputFn — замыкания, которые создают
// Client и Output после парсинга PersistentFlags.
package cli
