package automation_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"staytuned/src/application/automation"
	"staytuned/src/application/fetch"
	"staytuned/src/application/fetch/fetchfakes"
	"staytuned/src/application/integration_test/dummy"
	"staytuned/src/application/separation"
	"staytuned/src/application/separation/separationfakes"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Monitor", func() {
	var (
		fakeFetcher    *fetchfakes.FakeFetcher
		fakeExtractor  *separationfakes.FakeExtractor
		dummyFileStore *dummy.FileStore

		monitor   automation.Monitor
		processed automation.ProcessedSet

		redirectURL   string
		resolvedURL   string
		bucketBaseURL string

		fetchedFiles []string
	)

	BeforeEach(func() {
		By("Assigning all the variables data", func() {
			redirectURL = "https://tuned.example.com/current"
			resolvedURL = "https://youtube.com/watch?v=cool_jamz"
			bucketBaseURL = "https://jamz-bucket.s3.amazonaws.com"
			fetchedFiles = nil
		})

		By("Instantiating all mocks", func() {
			fakeFetcher = &fetchfakes.FakeFetcher{}
			fakeExtractor = &separationfakes.FakeExtractor{}
			dummyFileStore = dummy.NewDummyFileStore()

			fakeFetcher.FetchStub = func(_ context.Context, _ string, destDir string, wantVideo bool, wantAudio bool) (fetch.DownloadResult, error) {
				result := fetch.DownloadResult{}

				if wantAudio {
					result.AudioPath = filepath.Join(destDir, "audio_12345678.wav")
					Expect(os.WriteFile(result.AudioPath, []byte("cool_jamz"), os.ModePerm)).To(Succeed())
					fetchedFiles = append(fetchedFiles, result.AudioPath)
				}

				if wantVideo {
					result.VideoPath = filepath.Join(destDir, "video_12345678.mp4")
					Expect(os.WriteFile(result.VideoPath, []byte("cool_vidz"), os.ModePerm)).To(Succeed())
					fetchedFiles = append(fetchedFiles, result.VideoPath)
				}

				return result, nil
			}

			fakeExtractor.SeparateStub = func(_ context.Context, audioPath string, outputDir string, _ separation.Window) (map[separation.Stem]string, error) {
				Expect(os.MkdirAll(outputDir, os.ModePerm)).To(Succeed())

				base := filepath.Base(audioPath)
				base = base[:len(base)-len(filepath.Ext(base))]

				stems := map[separation.Stem]string{}
				allStems := append([]separation.Stem{}, separation.ModelStems...)
				allStems = append(allStems, separation.StemInstrumental)
				for _, stem := range allStems {
					stemPath := filepath.Join(outputDir, fmt.Sprintf("%s_%s.wav", base, stem))
					Expect(os.WriteFile(stemPath, []byte(stem), os.ModePerm)).To(Succeed())
					stems[stem] = stemPath
				}

				return stems, nil
			}
		})

		By("Instantiating the monitor", func() {
			resolver := automation.NewResolver(redirectingClient(map[string]string{
				redirectURL: resolvedURL,
			}))
			uploader := automation.NewUploader(dummyFileStore, bucketBaseURL)

			var err error
			monitor, err = automation.NewMonitor(resolver, fakeFetcher, fakeExtractor, uploader, workingDir, true)
			Expect(err).NotTo(HaveOccurred())

			processed = automation.NewProcessedSet()
		})
	})

	Describe("Happy path", func() {
		var report *automation.Report

		BeforeEach(func() {
			var err error
			report, err = monitor.ProcessLink(context.Background(), redirectURL, processed)
			Expect(err).NotTo(HaveOccurred())
			Expect(report).NotTo(BeNil())
		})

		It("uploads the video under the videos prefix", func() {
			Expect(report.VideoURL).To(Equal(bucketBaseURL + "/videos/video_12345678.mp4"))

			Expect(dummyFileStore.State[report.VideoURL]).To(Equal([]byte("cool_vidz")))
			Expect(dummyFileStore.ContentTypes[report.VideoURL]).To(Equal("video/mp4"))
		})

		It("uploads every audio track under the audio prefix", func() {
			Expect(report.AudioTrackURLs).To(HaveLen(5))

			expectedURLs := []string{}
			allStems := append([]separation.Stem{}, separation.ModelStems...)
			allStems = append(allStems, separation.StemInstrumental)
			for _, stem := range allStems {
				expectedURLs = append(expectedURLs, fmt.Sprintf("%s/audio/audio_12345678_%s.wav", bucketBaseURL, stem))
			}

			Expect(report.AudioTrackURLs).To(Equal(expectedURLs))

			for i, audioURL := range report.AudioTrackURLs {
				Expect(dummyFileStore.State[audioURL]).To(Equal([]byte(allStems[i])))
				Expect(dummyFileStore.ContentTypes[audioURL]).To(Equal("audio/wav"))
			}
		})

		It("cleans up the local files", func() {
			for _, fetchedFile := range fetchedFiles {
				Expect(fetchedFile).NotTo(BeAnExistingFile())
			}
		})

		It("does not process the same link twice", func() {
			secondReport, err := monitor.ProcessLink(context.Background(), redirectURL, processed)
			Expect(err).NotTo(HaveOccurred())

			Expect(secondReport).To(BeNil())
			Expect(fakeFetcher.FetchCallCount()).To(Equal(1))
		})
	})

	Describe("Unrecognized target", func() {
		BeforeEach(func() {
			resolver := automation.NewResolver(redirectingClient(map[string]string{
				redirectURL: "https://example.com/not-a-video",
			}))
			uploader := automation.NewUploader(dummyFileStore, bucketBaseURL)

			var err error
			monitor, err = automation.NewMonitor(resolver, fakeFetcher, fakeExtractor, uploader, workingDir, true)
			Expect(err).NotTo(HaveOccurred())
		})

		It("does nothing", func() {
			report, err := monitor.ProcessLink(context.Background(), redirectURL, processed)
			Expect(err).NotTo(HaveOccurred())

			Expect(report).To(BeNil())
			Expect(fakeFetcher.FetchCallCount()).To(Equal(0))
		})
	})

	Describe("Video only", func() {
		BeforeEach(func() {
			resolver := automation.NewResolver(redirectingClient(map[string]string{
				redirectURL: resolvedURL,
			}))
			uploader := automation.NewUploader(dummyFileStore, bucketBaseURL)

			var err error
			monitor, err = automation.NewMonitor(resolver, fakeFetcher, fakeExtractor, uploader, workingDir, false)
			Expect(err).NotTo(HaveOccurred())
		})

		It("skips audio extraction", func() {
			report, err := monitor.ProcessLink(context.Background(), redirectURL, processed)
			Expect(err).NotTo(HaveOccurred())

			Expect(report.VideoURL).NotTo(BeEmpty())
			Expect(report.AudioTrackURLs).To(BeEmpty())
			Expect(fakeExtractor.SeparateCallCount()).To(Equal(0))

			_, _, _, wantVideo, wantAudio := fakeFetcher.FetchArgsForCall(0)
			Expect(wantVideo).To(BeTrue())
			Expect(wantAudio).To(BeFalse())
		})
	})

	Describe("Fetch failure", func() {
		BeforeEach(func() {
			fakeFetcher.FetchStub = nil
			fakeFetcher.FetchReturns(fetch.DownloadResult{}, errors.New("network exploded"))
		})

		It("errors and leaves the link unprocessed", func() {
			_, err := monitor.ProcessLink(context.Background(), redirectURL, processed)
			Expect(err).To(HaveOccurred())

			Expect(processed[resolvedURL]).To(BeFalse())
		})
	})

	Describe("Upload failure", func() {
		BeforeEach(func() {
			dummyFileStore.Unavailable = true
		})

		It("errors and leaves the link unprocessed", func() {
			_, err := monitor.ProcessLink(context.Background(), redirectURL, processed)
			Expect(err).To(HaveOccurred())

			Expect(processed[resolvedURL]).To(BeFalse())
		})
	})
})
