package main

import (
	"os"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/jsii-runtime-go"

	"github.com/andrey-berenda/mpgs-checkout/internal/pkg/cloudformation"
	"github.com/andrey-berenda/mpgs-checkout/internal/pkg/ptr"
)

func main() {
	defer jsii.Close()

	app := awscdk.NewApp(nil)

	cloudformation.NewStack(app, "MpgsCheckoutStack", &awscdk.StackProps{
		Env: &awscdk.Environment{
			Account: ptr.Of(os.Getenv("CDK_DEFAULT_ACCOUNT")),
			Region:  ptr.Of(os.Getenv("CDK_DEFAULT_REGION")),
		},
	})

	app.Synth(nil)
}
