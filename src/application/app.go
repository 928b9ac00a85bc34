package application

import (
	"os"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"staytuned/src/application/device"
	"staytuned/src/application/executor"
	"staytuned/src/application/fetch"
	"staytuned/src/application/gateway"
	"staytuned/src/application/separation"
)

func getEnvOrDefault(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}

	return val
}

func ensureOk(err error) {
	if err != nil {
		panic(err)
	}
}

type App struct {
	echoServer *echo.Echo
	port       string
}

func NewApp() App {
	port := getEnvOrDefault("PORT", "8000")
	outputDir := getEnvOrDefault("OUTPUT_DIR", "./web_output")

	binaryExecutor := executor.BinaryFileExecutor{}

	model, err := separation.ConvertToModel(getEnvOrDefault("SEPARATION_MODEL", string(separation.HTDemucs)))
	ensureOk(err)

	dev := device.DefaultSelector(binaryExecutor).Select()

	engine, err := separation.NewEngine(
		getEnvOrDefault("SEPARATION_WORKING_DIR_PATH", "./temp_audio"),
		getEnvOrDefault("FFMPEG_BIN_PATH", "ffmpeg"),
		getEnvOrDefault("DEMUCS_BIN_PATH", "demucs"),
		model,
		dev,
		binaryExecutor,
	)
	ensureOk(err)

	fetcher := fetch.NewYTDLPFetcher(getEnvOrDefault("YTDLP_BIN_PATH", "yt-dlp"), binaryExecutor)

	webGateway, err := gateway.NewGateway(engine, fetcher, outputDir)
	ensureOk(err)

	echoServer := echo.New()
	echoServer.Use(middleware.Logger())
	echoServer.Use(middleware.Recover())

	echoServer.POST("/extract-file", webGateway.ExtractFile)
	echoServer.POST("/extract-url", webGateway.ExtractURL)
	echoServer.GET("/stream/:filename", webGateway.Stream)
	echoServer.GET("/download/:filename", webGateway.Download)
	echoServer.POST("/cleanup", webGateway.Cleanup)

	echoServer.File("/", "static/index.html")
	echoServer.Static("/static", "static")

	return App{
		echoServer: echoServer,
		port:       port,
	}
}

func (a App) Start() {
	a.echoServer.Logger.Fatal(a.echoServer.Start(":" + a.port))
}
