package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sharetube/partysync/internal/app"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
	usage        string
}

var (
	secret = configVar[string]{
		envKey:  "SERVER_SECRET",
		flagKey: "secret",
		usage:   "Secret used to verify auth tokens",
	}
	host = configVar[string]{
		envKey:       "SERVER_HOST",
		flagKey:      "host",
		defaultValue: "0.0.0.0",
		usage:        "Server host",
	}
	port = configVar[int]{
		envKey:       "SERVER_PORT",
		flagKey:      "port",
		defaultValue: 80,
		usage:        "Server port",
	}
	logLevel = configVar[string]{
		envKey:       "SERVER_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "INFO",
		usage:        "Logging level",
	}
	redisHost = configVar[string]{
		envKey:       "REDIS_HOST",
		flagKey:      "redis-host",
		defaultValue: "localhost",
		usage:        "Redis host",
	}
	redisPort = configVar[int]{
		envKey:       "REDIS_PORT",
		flagKey:      "redis-port",
		defaultValue: 6379,
		usage:        "Redis port",
	}
	redisPassword = configVar[string]{
		envKey:  "REDIS_PASSWORD",
		flagKey: "redis-password",
		usage:   "Redis password",
	}
	redisDB = configVar[int]{
		envKey:  "REDIS_DB",
		flagKey: "redis-db",
		usage:   "Redis database number",
	}
	roomTTL = configVar[time.Duration]{
		envKey:  "SERVER_ROOM_TTL",
		flagKey: "room-ttl",
		usage:   "Optional idle lifetime of a watch party, 0 keeps rooms until they are ended",
	}
	messageStore = configVar[string]{
		envKey:       "MESSAGE_STORE",
		flagKey:      "message-store",
		defaultValue: app.MessageStoreRedis,
		usage:        "Direct message store: redis, postgres or sqlite",
	}
	messageStoreDSN = configVar[string]{
		envKey:  "MESSAGE_STORE_DSN",
		flagKey: "message-store-dsn",
		usage:   "DSN of the sql message store",
	}
	playlistLimit = configVar[int]{
		envKey:       "SERVER_PLAYLIST_LIMIT",
		flagKey:      "playlist-limit",
		defaultValue: 25,
		usage:        "Maximum number of videos in the queue",
	}
	chatHistoryLimit = configVar[int]{
		envKey:       "SERVER_CHAT_HISTORY_LIMIT",
		flagKey:      "chat-history-limit",
		defaultValue: 100,
		usage:        "Number of chat messages kept per watch party",
	}
	conversationLimit = configVar[int]{
		envKey:       "SERVER_CONVERSATION_LIMIT",
		flagKey:      "conversation-limit",
		defaultValue: 200,
		usage:        "Number of direct messages returned per conversation, 0 returns all",
	}
	playbackInterval = configVar[time.Duration]{
		envKey:       "SERVER_PLAYBACK_INTERVAL",
		flagKey:      "playback-interval",
		defaultValue: 700 * time.Millisecond,
		usage:        "Minimum spacing of playback broadcasts per room",
	}
	playbackJitter = configVar[float64]{
		envKey:       "SERVER_PLAYBACK_JITTER",
		flagKey:      "playback-jitter",
		defaultValue: 0.4,
		usage:        "Playback position change in seconds treated as noise",
	}
	strictMode = configVar[bool]{
		envKey:  "SERVER_STRICT_MODE",
		flagKey: "strict-mode",
		usage:   "Send error events back to the client",
	}
	persistReadReceipts = configVar[bool]{
		envKey:  "SERVER_PERSIST_READ_RECEIPTS",
		flagKey: "persist-read-receipts",
		usage:   "Store read receipts in the message store",
	}
	allowedOrigins = configVar[[]string]{
		envKey:       "SERVER_ALLOWED_ORIGINS",
		flagKey:      "allowed-origins",
		defaultValue: []string{"*"},
		usage:        "Origins allowed to connect",
	}
	writeTimeout = configVar[time.Duration]{
		envKey:       "SERVER_WRITE_TIMEOUT",
		flagKey:      "write-timeout",
		defaultValue: 10 * time.Second,
		usage:        "Websocket write deadline",
	}
	oembedURL = configVar[string]{
		envKey:  "YOUTUBE_OEMBED_URL",
		flagKey: "oembed-url",
		usage:   "Override of the oEmbed endpoint",
	}
	watchURL = configVar[string]{
		envKey:  "YOUTUBE_WATCH_URL",
		flagKey: "watch-url",
		usage:   "Override of the watch page endpoint",
	}
)

func bind[T any](v configVar[T]) {
	viper.BindEnv(v.flagKey, v.envKey)
	viper.SetDefault(v.flagKey, v.defaultValue)
}

func loadAppConfig() *app.AppConfig {
	pflag.String(secret.flagKey, secret.defaultValue, secret.usage)
	pflag.String(host.flagKey, host.defaultValue, host.usage)
	pflag.Int(port.flagKey, port.defaultValue, port.usage)
	pflag.String(logLevel.flagKey, logLevel.defaultValue, logLevel.usage)
	pflag.String(redisHost.flagKey, redisHost.defaultValue, redisHost.usage)
	pflag.Int(redisPort.flagKey, redisPort.defaultValue, redisPort.usage)
	pflag.String(redisPassword.flagKey, redisPassword.defaultValue, redisPassword.usage)
	pflag.Int(redisDB.flagKey, redisDB.defaultValue, redisDB.usage)
	pflag.Duration(roomTTL.flagKey, roomTTL.defaultValue, roomTTL.usage)
	pflag.String(messageStore.flagKey, messageStore.defaultValue, messageStore.usage)
	pflag.String(messageStoreDSN.flagKey, messageStoreDSN.defaultValue, messageStoreDSN.usage)
	pflag.Int(playlistLimit.flagKey, playlistLimit.defaultValue, playlistLimit.usage)
	pflag.Int(chatHistoryLimit.flagKey, chatHistoryLimit.defaultValue, chatHistoryLimit.usage)
	pflag.Int(conversationLimit.flagKey, conversationLimit.defaultValue, conversationLimit.usage)
	pflag.Duration(playbackInterval.flagKey, playbackInterval.defaultValue, playbackInterval.usage)
	pflag.Float64(playbackJitter.flagKey, playbackJitter.defaultValue, playbackJitter.usage)
	pflag.Bool(strictMode.flagKey, strictMode.defaultValue, strictMode.usage)
	pflag.Bool(persistReadReceipts.flagKey, persistReadReceipts.defaultValue, persistReadReceipts.usage)
	pflag.StringSlice(allowedOrigins.flagKey, allowedOrigins.defaultValue, allowedOrigins.usage)
	pflag.Duration(writeTimeout.flagKey, writeTimeout.defaultValue, writeTimeout.usage)
	pflag.String(oembedURL.flagKey, oembedURL.defaultValue, oembedURL.usage)
	pflag.String(watchURL.flagKey, watchURL.defaultValue, watchURL.usage)
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	bind(secret)
	bind(host)
	bind(port)
	bind(logLevel)
	bind(redisHost)
	bind(redisPort)
	bind(redisPassword)
	bind(redisDB)
	bind(roomTTL)
	bind(messageStore)
	bind(messageStoreDSN)
	bind(playlistLimit)
	bind(chatHistoryLimit)
	bind(conversationLimit)
	bind(playbackInterval)
	bind(playbackJitter)
	bind(strictMode)
	bind(persistReadReceipts)
	bind(allowedOrigins)
	bind(writeTimeout)
	bind(oembedURL)
	bind(watchURL)

	return &app.AppConfig{
		Secret:              viper.GetString(secret.flagKey),
		Host:                viper.GetString(host.flagKey),
		Port:                viper.GetInt(port.flagKey),
		LogLevel:            viper.GetString(logLevel.flagKey),
		RedisHost:           viper.GetString(redisHost.flagKey),
		RedisPort:           viper.GetInt(redisPort.flagKey),
		RedisPassword:       viper.GetString(redisPassword.flagKey),
		RedisDB:             viper.GetInt(redisDB.flagKey),
		RoomTTL:             viper.GetDuration(roomTTL.flagKey),
		MessageStore:        viper.GetString(messageStore.flagKey),
		MessageStoreDSN:     viper.GetString(messageStoreDSN.flagKey),
		PlaylistLimit:       viper.GetInt(playlistLimit.flagKey),
		ChatHistoryLimit:    viper.GetInt(chatHistoryLimit.flagKey),
		ConversationLimit:   viper.GetInt(conversationLimit.flagKey),
		PlaybackInterval:    viper.GetDuration(playbackInterval.flagKey),
		PlaybackJitter:      viper.GetFloat64(playbackJitter.flagKey),
		StrictMode:          viper.GetBool(strictMode.flagKey),
		PersistReadReceipts: viper.GetBool(persistReadReceipts.flagKey),
		AllowedOrigins:      viper.GetStringSlice(allowedOrigins.flagKey),
		WriteTimeout:        viper.GetDuration(writeTimeout.flagKey),
		OEmbedURL:           viper.GetString(oembedURL.flagKey),
		WatchURL:            viper.GetString(watchURL.flagKey),
	}
}

func main() {
	// a missing .env file is fine, the environment may already be populated
	_ = godotenv.Load()

	appConfig := loadAppConfig()

	jsonConfig, _ := json.MarshalIndent(appConfig, "", "  ")
	fmt.Printf("starting app with config: %s\n", jsonConfig)

	if err := app.Run(context.Background(), appConfig); err != nil {
		log.Fatal(err)
	}
}
