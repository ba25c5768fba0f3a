package types

import (
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/robfig/cron/v3"
)

type Environment struct {
	Cron         *cron.Cron
	S3Client     *s3.Client
	S3Downloader *manager.Downloader
}

func NewEnvironment() *Environment {
	cr := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	return &Environment{
		Cron: cr,
	}
}

func (e *Environment) AddS3Downloader(downloader *manager.Downloader) {
	e.S3Downloader = downloader
}
